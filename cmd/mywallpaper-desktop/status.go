package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mywallpaper/desktop/internal/config"
	"github.com/mywallpaper/desktop/internal/geom"
	"github.com/mywallpaper/desktop/internal/layer"
	"github.com/mywallpaper/desktop/internal/monitor"
	"github.com/mywallpaper/desktop/internal/shell"
)

var statusYAML bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the desktop shell topology, monitors and effective config",
	Run: func(cmd *cobra.Command, args []string) {
		checkStatus()
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusYAML, "yaml", false, "print the report as YAML")
}

type statusReport struct {
	ConfigFile  string         `yaml:"config_file,omitempty"`
	Config      config.Config  `yaml:"config"`
	Chain       *shell.Handles `yaml:"chain,omitempty"`
	ChainError  string         `yaml:"chain_error,omitempty"`
	Monitors    monitor.Set    `yaml:"monitors"`
	Bounds      geom.Rect      `yaml:"bounds"`
	Surface     shell.Handle   `yaml:"surface,omitempty"`
	Injected    bool           `yaml:"injected"`
	IconsHidden bool           `yaml:"icons_hidden"`
}

// buildStatus only reads the window tree; it does not ask explorer to spawn
// a WorkerW.
func buildStatus(tree shell.Tree, ops shell.WindowOps, cfg config.Config, file string) statusReport {
	r := statusReport{ConfigFile: file, Config: cfg}

	if chain, err := shell.NewResolver(tree).Resolve(); err != nil {
		r.ChainError = err.Error()
	} else {
		r.Chain = &chain
		if h, err := layer.FindSurface(tree, cfg.SurfaceClass, cfg.SurfaceTitle); err == nil {
			r.Surface = h
			r.Injected = ops.Parent(h) == chain.Insertion
		}
	}

	if set, err := monitor.Enumerate(); err == nil {
		r.Monitors = set
		r.Bounds = set.Bounds()
	}
	if _, err := os.Stat(recoveryPath()); err == nil {
		r.IconsHidden = true
	}
	return r
}

func checkStatus() {
	store, cfg := loadConfig()
	sys := shell.System{}
	r := buildStatus(sys, sys, cfg, store.File())

	if statusYAML {
		out, err := yaml.Marshal(r)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode status: %v\n", err)
			os.Exit(1)
		}
		os.Stdout.Write(out)
		return
	}
	printStatus(r)
}

func printStatus(r statusReport) {
	header := color.New(color.FgCyan, color.Bold)
	ok := color.New(color.FgGreen)
	bad := color.New(color.FgRed)
	warn := color.New(color.FgYellow)

	header.Println("Desktop shell")
	if r.Chain == nil {
		bad.Printf("  unresolved: %s\n", r.ChainError)
	} else {
		ok.Printf("  variant:    %s\n", r.Chain.Variant)
		fmt.Printf("  root:       %s\n", r.Chain.Root)
		fmt.Printf("  icon list:  %s\n", r.Chain.IconList)
		fmt.Printf("  insertion:  %s\n", r.Chain.Insertion)
	}

	header.Println("Wallpaper")
	switch {
	case r.Surface == 0:
		bad.Println("  window not found")
	case r.Injected:
		ok.Printf("  %s behind the desktop icons\n", r.Surface)
	default:
		warn.Printf("  %s found but not attached\n", r.Surface)
	}
	if r.IconsHidden {
		warn.Println("  desktop icons hidden (run restore-icons if no layer is running)")
	}

	header.Println("Monitors")
	if len(r.Monitors) == 0 {
		bad.Println("  none")
	}
	for _, m := range r.Monitors {
		primary := ""
		if m.Primary {
			primary = " (primary)"
		}
		fmt.Printf("  #%d %dx%d at %d,%d%s\n", m.Index, m.Bounds.Width(), m.Bounds.Height(), m.Bounds.Left, m.Bounds.Top, primary)
	}

	header.Println("Config")
	if r.ConfigFile != "" {
		fmt.Printf("  file:                  %s\n", r.ConfigFile)
	}
	fmt.Printf("  hide_desktop_icons:    %t\n", r.Config.HideDesktopIcons)
	fmt.Printf("  consume_desktop_input: %t\n", r.Config.ConsumeDesktopInput)
	fmt.Printf("  watchdog_interval:     %s\n", r.Config.WatchdogInterval)
}

var restoreIconsCmd = &cobra.Command{
	Use:   "restore-icons",
	Short: "Show the desktop icons and clear the recovery file",
	Run: func(cmd *cobra.Command, args []string) {
		if err := restoreIcons(shell.System{}); err != nil {
			color.Red("Failed to restore desktop icons: %v", err)
			os.Exit(1)
		}
		color.Green("Desktop icons restored")
	},
}

func restoreIcons(sys interface {
	shell.Tree
	shell.IconWindow
}) error {
	chain, err := shell.NewResolver(sys).Resolve()
	if err != nil {
		if errors.Is(err, shell.ErrTopologyUnresolved) {
			return fmt.Errorf("desktop shell not found, is explorer running? %w", err)
		}
		return err
	}
	ctl := shell.NewIconController(sys, func() shell.Handles { return chain }, recoveryPath())
	return ctl.ForceShow()
}
