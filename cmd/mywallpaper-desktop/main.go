package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mywallpaper/desktop/internal/config"
	"github.com/mywallpaper/desktop/internal/events"
	"github.com/mywallpaper/desktop/internal/health"
	"github.com/mywallpaper/desktop/internal/layer"
	"github.com/mywallpaper/desktop/internal/logging"
)

const shutdownTimeout = 5 * time.Second

var (
	version = "0.1.0"
	cfgFile string
	runMode string
)

var log = logging.L("main")

var rootCmd = &cobra.Command{
	Use:   "mywallpaper-desktop",
	Short: "MyWallpaper desktop layer",
	Long:  `Places the MyWallpaper window behind the Windows desktop icons and passes desktop clicks through to it.`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Attach to the wallpaper window and run the desktop layer",
	Run: func(cmd *cobra.Command, args []string) {
		runLayer()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("MyWallpaper desktop layer v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is %APPDATA%\\MyWallpaper\\desktop.yaml)")

	runCmd.Flags().StringVar(&runMode, "mode", "desktop", "initial layer mode: desktop or interactive")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(restoreIconsCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func recoveryPath() string {
	return filepath.Join(config.DataDir(), "icons_state.json")
}

// loadConfig loads and validates the config, exiting on fatal problems.
func loadConfig() (*config.Store, config.Config) {
	store, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg := store.Config()
	result := cfg.ValidateTiered()
	for _, err := range result.Warnings {
		fmt.Fprintf(os.Stderr, "Config warning: %v\n", err)
	}
	if result.HasFatals() {
		for _, err := range result.Fatals {
			fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		}
		os.Exit(1)
	}
	return store, cfg
}

func initLogging(cfg config.Config) (io.Writer, io.Closer) {
	out, closer, err := logging.Output(cfg.LogFile, cfg.LogMaxSizeMB, cfg.LogMaxBackups)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Log file unavailable, logging to stdout only: %v\n", err)
	}
	logging.Init(cfg.LogFormat, cfg.LogLevel, out)
	return out, closer
}

func runLayer() {
	mode, err := layer.ParseMode(runMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid --mode: %v\n", err)
		os.Exit(1)
	}
	store, cfg := loadConfig()
	out, closer := initLogging(cfg)
	defer closer.Close()

	deps, err := layer.SystemDeps()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Desktop layer unavailable: %v\n", err)
		os.Exit(1)
	}
	surface, err := layer.FindSurface(deps.Tree, cfg.SurfaceClass, cfg.SurfaceTitle)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Wallpaper window not found: %v\n", err)
		os.Exit(1)
	}

	bus := events.NewBus()
	defer bus.Close()
	sub, unsubscribe := bus.Subscribe(64)
	defer unsubscribe()
	go logEvents(sub)

	hm := health.NewMonitor()
	l, err := layer.New(cfg, surface, deps,
		layer.WithEvents(bus),
		layer.WithHealth(hm),
		layer.WithRecoveryFile(recoveryPath()),
		layer.WithDetachOnShutdown(true),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create desktop layer: %v\n", err)
		os.Exit(1)
	}

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := l.Shutdown(ctx); err != nil {
			log.Error("shutdown", "error", err)
		}
	}
	// Console close, logoff and system shutdown give the process no time to
	// reach the deferred cleanup below.
	onConsoleClose(shutdown)
	defer shutdownOnPanic(shutdown)

	log.Info("starting desktop layer", "version", version, "surface", surface, "config", store.File())
	if err := l.Start(context.Background()); err != nil {
		shutdown()
		fmt.Fprintf(os.Stderr, "Failed to start desktop layer: %v\n", err)
		os.Exit(1)
	}

	if mode != layer.ModeDesktop {
		if err := l.SetMode(context.Background(), mode); err != nil {
			log.Error("failed to switch layer mode", "mode", mode, "error", err)
		}
	}

	store.Watch(func(prev, next config.Config) {
		if prev.LogLevel != next.LogLevel || prev.LogFormat != next.LogFormat {
			logging.Init(next.LogFormat, next.LogLevel, out)
		}
		l.ApplyConfig(next)
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info("received signal", "signal", sig.String())
	case <-l.SurfaceLost():
		log.Warn("wallpaper window closed")
	}
	shutdown()
	log.Info("desktop layer stopped", "health", hm.Overall())
}

// shutdownOnPanic restores the desktop before a panic on the main goroutine
// kills the process, then re-panics.
func shutdownOnPanic(shutdown func()) {
	if r := recover(); r != nil {
		log.Error("panic, restoring desktop before exit", "panic", r, "stack", string(debug.Stack()))
		shutdown()
		panic(r)
	}
}

func logEvents(ch <-chan events.Event) {
	elog := logging.L("events")
	for ev := range ch {
		elog.Info("event", "type", ev.Type, "data", ev.Data)
	}
}
