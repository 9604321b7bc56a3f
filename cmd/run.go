/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/allbin/serialmux/internal/config"
	"github.com/allbin/serialmux/internal/daemon"
	"github.com/allbin/serialmux/internal/tui/models"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Open the configured devices and serve their virtual endpoints",
	Long: `Open every configured master device, expose its virtual endpoints and copy
data between them until interrupted (Ctrl+C or SIGTERM).

Devices that are missing or fail are retried every reconnect_interval.

With --tui a dashboard shows the state and traffic of every node. Select a
node with the arrow keys, press w to move the writer role to a virtual and r
to reconnect a node. Logs go to log.file while the dashboard is shown.

Example usage:
  serialmux run
  serialmux run --config ./serialmux.yaml --log-level debug
  serialmux run --tui --log-file /tmp/serialmux.log`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		useTUI, _ := cmd.Flags().GetBool("tui")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if len(cfg.Masters) == 0 {
			return fmt.Errorf("no masters configured")
		}

		log, closeLog, err := newLogger(cfg, useTUI)
		if err != nil {
			return err
		}
		defer closeLog()

		d, err := daemon.New(cfg, log)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if !useTUI {
			log.Info("serialmux starting", "config", cfg.Source, "masters", len(cfg.Masters))
			err := d.Run(ctx)
			log.Info("serialmux stopped")
			return err
		}
		return runDashboard(ctx, cfg, d)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("tui", "t", false, "Show a live dashboard of the node graph")
}

func runDashboard(ctx context.Context, cfg *config.Config, d *daemon.Daemon) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := models.NewDashboard(d, cfg.Source, 500*time.Millisecond)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	done := make(chan error, 1)
	go func() {
		err := d.Run(ctx)
		p.Send(models.StoppedMsg{Err: err})
		done <- err
	}()

	_, uiErr := p.Run()
	if errors.Is(uiErr, tea.ErrProgramKilled) {
		// interrupted through ctx, not a UI failure
		uiErr = nil
	}

	// stop the daemon when the dashboard is closed first
	cancel()
	return errors.Join(uiErr, <-done)
}
