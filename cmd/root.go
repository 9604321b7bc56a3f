/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/allbin/serialmux/internal/config"
	"github.com/allbin/serialmux/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	v       *viper.Viper
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "serialmux",
	Short: "Share serial devices between several programs",
	Long: `serialmux opens physical serial devices and exposes each of them as a set of
virtual serial endpoints (pseudo-terminals) that other programs can open as
if they were the real device.

Everything the device sends is copied to every virtual endpoint. Only the
virtual endpoint holding the writer role may send to the device; bytes
written to the others are dropped.

The topology is read from serialmux.yaml in the working directory or
/etc/serialmux/, or from the file given with --config.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ./serialmux.yaml, /etc/serialmux/serialmux.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "console", "Log format: console, json")
	rootCmd.PersistentFlags().String("log-file", "", "Write logs to this file instead of stderr")
}

// initConfig sets up viper once the flags are parsed, so --config is known
func initConfig() {
	v = config.New(cfgFile)
	flags := rootCmd.PersistentFlags()
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("log.format", flags.Lookup("log-format"))
	_ = v.BindPFlag("log.file", flags.Lookup("log-file"))
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	if used := v.ConfigFileUsed(); used != "" {
		cfg.Source = used
	}
	return cfg, nil
}

// newLogger builds the logger for cfg and returns a func closing its
// output. When quiet is set and no log file is configured, logs are dropped
// so they do not draw over a full screen UI.
func newLogger(cfg *config.Config, quiet bool) (*slog.Logger, func(), error) {
	var out io.Writer = os.Stderr
	closeLog := func() {}

	switch {
	case cfg.Log.File != "":
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closeLog = func() { f.Close() }
	case quiet:
		return logger.Discard(), closeLog, nil
	}

	log, err := logger.New(logger.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: out,
	})
	if err != nil {
		closeLog()
		return nil, nil, err
	}
	return log, closeLog, nil
}
