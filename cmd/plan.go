/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/allbin/serialmux/internal/config"
	"github.com/allbin/serialmux/internal/tui/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// planCmd represents the plan command
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the nodes the configuration creates",
	Long: `Load and validate the configuration and show every node the daemon would
create, without opening any device.

Example usage:
  serialmux plan
  serialmux plan --config /etc/serialmux/serialmux.yaml --yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		plan, err := cfg.Plan()
		if err != nil {
			return err
		}

		asYAML, _ := cmd.Flags().GetBool("yaml")
		if asYAML {
			return renderPlanYAML(cmd.OutOrStdout(), plan)
		}
		renderPlanTable(cmd.OutOrStdout(), cfg, plan)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().Bool("yaml", false, "Print the plan as YAML")
}

func renderPlanYAML(w io.Writer, plan []config.PlanEntry) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]any{"nodes": plan}); err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	return enc.Close()
}

func renderPlanTable(w io.Writer, cfg *config.Config, plan []config.PlanEntry) {
	if len(plan) == 0 {
		fmt.Fprintln(w, "No masters configured")
		return
	}

	source := cfg.Source
	if source == "" {
		source = "defaults and environment"
	}
	fmt.Fprintf(w, "%s %s\n\n", styles.TitleStyle.Render("serialmux"), source)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(styles.BorderStyle).
		Headers("Name", "Role", "Master", "Baud", "Writer").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.HeaderStyle
			}
			return styles.CellStyle
		})

	for _, e := range plan {
		writer := ""
		if e.Writer {
			writer = "yes"
		}
		t.Row(e.Name, e.Role, e.Master, strconv.Itoa(e.BaudRate), writer)
	}
	fmt.Fprintln(w, t.Render())
}
