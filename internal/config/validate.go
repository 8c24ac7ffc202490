package config

import (
	"fmt"
	"strings"
	"time"
)

var validLogLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

// ValidationResult splits problems into fatals, which stop startup, and
// warnings, which were corrected in place.
type ValidationResult struct {
	Fatals   []error
	Warnings []error
}

// HasFatals reports whether any problem prevents using the config.
func (r ValidationResult) HasFatals() bool { return len(r.Fatals) > 0 }

// Errors returns fatals followed by warnings.
func (r ValidationResult) Errors() []error {
	return append(append([]error(nil), r.Fatals...), r.Warnings...)
}

// ValidateTiered checks the config. Out-of-range numbers are clamped and
// reported as warnings; values that cannot be corrected are fatal.
func (c *Config) ValidateTiered() ValidationResult {
	var r ValidationResult

	c.WatchdogInterval = clampDuration(&r, "watchdog_interval", c.WatchdogInterval, 250*time.Millisecond, time.Minute)
	c.SupervisorInterval = clampDuration(&r, "supervisor_interval", c.SupervisorInterval, time.Second, 10*time.Minute)
	c.ResolveInitialDelay = clampDuration(&r, "resolve_initial_delay", c.ResolveInitialDelay, 10*time.Millisecond, 10*time.Second)
	c.ResolveMaxDelay = clampDuration(&r, "resolve_max_delay", c.ResolveMaxDelay, c.ResolveInitialDelay, time.Minute)
	c.ResolveAttempts = clampInt(&r, "resolve_attempts", c.ResolveAttempts, 1, 50)
	c.ForwardQueueSize = clampInt(&r, "forward_queue_size", c.ForwardQueueSize, 16, 8192)
	c.LogMaxSizeMB = clampInt(&r, "log_max_size_mb", c.LogMaxSizeMB, 1, 500)
	c.LogMaxBackups = clampInt(&r, "log_max_backups", c.LogMaxBackups, 0, 20)

	if c.SurfaceTitle == "" && c.SurfaceClass == "" {
		r.Fatals = append(r.Fatals, fmt.Errorf("surface_title and surface_class are both empty; nothing identifies the wallpaper window"))
	}

	if c.LogLevel != "" && !validLogLevels[strings.ToLower(c.LogLevel)] {
		r.Fatals = append(r.Fatals, fmt.Errorf("log_level %q is not valid (use debug, info, warn, error)", c.LogLevel))
	}
	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		r.Fatals = append(r.Fatals, fmt.Errorf("log_format %q is not valid (use text or json)", c.LogFormat))
	}

	return r
}

// Validate runs ValidateTiered and logs every problem. It returns all of
// them, fatals first.
func (c *Config) Validate() []error {
	r := c.ValidateTiered()
	for _, err := range r.Fatals {
		log.Error("config validation", "error", err)
	}
	for _, err := range r.Warnings {
		log.Warn("config validation", "error", err)
	}
	return r.Errors()
}

func clampDuration(r *ValidationResult, key string, v, lo, hi time.Duration) time.Duration {
	switch {
	case v < lo:
		r.Warnings = append(r.Warnings, fmt.Errorf("%s %s is below minimum %s, clamping", key, v, lo))
		return lo
	case v > hi:
		r.Warnings = append(r.Warnings, fmt.Errorf("%s %s exceeds maximum %s, clamping", key, v, hi))
		return hi
	}
	return v
}

func clampInt(r *ValidationResult, key string, v, lo, hi int) int {
	switch {
	case v < lo:
		r.Warnings = append(r.Warnings, fmt.Errorf("%s %d is below minimum %d, clamping", key, v, lo))
		return lo
	case v > hi:
		r.Warnings = append(r.Warnings, fmt.Errorf("%s %d exceeds maximum %d, clamping", key, v, hi))
		return hi
	}
	return v
}
