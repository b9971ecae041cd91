package main

import (
	"fmt"
	"log/slog"

	"github.com/giantswarm/classloader"
	"github.com/giantswarm/classloader/internal/config"
	"github.com/spf13/cobra"
)

// rootFlags are the persistent flags shared by every subcommand.
type rootFlags struct {
	configFile  string
	libraries   []string
	libraryDirs []string
	onDemand    bool
	lock        bool
	lockTimeout string
	logLevel    string
}

// app carries the state a subcommand needs once the root has set up.
type app struct {
	flags rootFlags
	cfg   config.Config
	// extra options appended after the configured ones; tests use it to
	// swap in static libraries.
	extra []classloader.Option
}

func newRootCmd(extra ...classloader.Option) *cobra.Command {
	return newApp(extra...).rootCmd()
}

func newApp(extra ...classloader.Option) *app {
	return &app{extra: extra}
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classloader",
		Short: "Load plugin libraries and work with their classes",
		Long: `classloader opens Go plugin libraries that export RegisterClasses and
lists or instantiates the classes they register. Libraries are searched in
the order they are given.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.flags.configFile, "config", "", "configuration file (.yaml, .yml, .toml or .json)")
	pf.StringSliceVarP(&a.flags.libraries, "library", "l", nil, "library to load; repeatable, searched in order")
	pf.StringSliceVar(&a.flags.libraryDirs, "library-dir", nil, "directory to scan for *.so libraries; repeatable")
	pf.BoolVar(&a.flags.onDemand, "on-demand", false, "close libraries when their last instance is released")
	pf.BoolVar(&a.flags.lock, "lock", false, "hold a shared file lock on loaded libraries")
	pf.StringVar(&a.flags.lockTimeout, "lock-timeout", "", "how long to wait for a library file lock, e.g. 5s")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn or error")

	cmd.AddCommand(
		newLibrariesCmd(a),
		newClassesCmd(a),
		newCreateCmd(a),
	)
	return cmd
}

// setup merges the config file with the flags and installs the logger.
// Boolean flags given on the command line override the config file in both
// directions; when absent the file decides.
func (a *app) setup(cmd *cobra.Command) error {
	var cfg config.Config
	if a.flags.configFile != "" {
		loaded, err := config.Load(a.flags.configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	cfg = cfg.Merge(config.Config{
		Libraries:     a.flags.libraries,
		LibraryDirs:   a.flags.libraryDirs,
		OnDemand:      a.flags.onDemand,
		LockLibraries: a.flags.lock,
		LockTimeout:   a.flags.lockTimeout,
		LogLevel:      a.flags.logLevel,
	})
	if cmd.Flags().Changed("on-demand") {
		cfg.OnDemand = a.flags.onDemand
	}
	if cmd.Flags().Changed("lock") {
		cfg.LockLibraries = a.flags.lock
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	level, _ := cfg.Level()
	classloader.SetLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(),
		&slog.HandlerOptions{Level: level})).With("component", "classloader"))
	return nil
}

// open builds a MultiLoader and loads the configured libraries. The caller
// must Shutdown the result.
func (a *app) open() (*classloader.MultiLoader, error) {
	libs, err := a.cfg.ResolveLibraries()
	if err != nil {
		return nil, err
	}
	opts := append(a.cfg.Options(), a.extra...)
	ml := classloader.NewMultiLoader(opts...)
	if err := ml.LoadLibraries(libs...); err != nil {
		_ = ml.Shutdown()
		return nil, err
	}
	return ml, nil
}
