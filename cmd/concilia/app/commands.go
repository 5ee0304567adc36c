package app

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/concilia/internal/cmd/output"
	"github.com/agentstation/concilia/internal/documents"
	"github.com/agentstation/concilia/pkg/errors"
	"github.com/agentstation/concilia/pkg/importer"
	"github.com/agentstation/concilia/pkg/ledger"
)

// render writes raw in the selected format, or table for table output.
func (a *App) render(cmd *cobra.Command, table output.Data, raw any) error {
	format := output.DetectFormat(a.config.Output)
	if format == output.FormatTable {
		return output.NewFormatter(format).Format(cmd.OutOrStdout(), table)
	}
	return output.NewFormatter(format).Format(cmd.OutOrStdout(), raw)
}

// NewClientsCommand lists the known clients.
func (a *App) NewClientsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "clients",
		GroupID: "ledger",
		Short:   "List clients",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.Client(cmd.Context())
			if err != nil {
				return err
			}
			clients, err := c.Clients(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(cmd, output.ClientsTable(clients), clients)
		},
	}
}

// NewGridCommand shows the status grid of a year.
func (a *App) NewGridCommand() *cobra.Command {
	var year int
	cmd := &cobra.Command{
		Use:     "grid",
		GroupID: "ledger",
		Short:   "Show the payment grid of a year",
		Example: `  concilia grid
  concilia grid --year 2024 -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if year == 0 {
				year = a.now().Year()
			}
			c, err := a.Client(cmd.Context())
			if err != nil {
				return err
			}
			grid, err := c.Grid(cmd.Context(), year)
			if err != nil {
				return err
			}
			return a.render(cmd, output.GridTable(grid), grid)
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "year to show (default current year)")
	return cmd
}

// NewToggleCommand applies a manual click on a cell.
func (a *App) NewToggleCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "toggle <client-id> <month> <year>",
		GroupID: "ledger",
		Short:   "Toggle the manual payment of a month",
		Long: `Toggle applies a manual click on one month of one client:

  empty month       a manual payment dated today is created
  manual payment    the payment is removed
  imported payment  the payment becomes manual and is kept by later imports`,
		Example: `  concilia toggle 1 3 2025`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cell, err := parseCell(args)
			if err != nil {
				return err
			}
			c, err := a.Client(cmd.Context())
			if err != nil {
				return err
			}
			t, err := c.Toggle(cmd.Context(), cell)
			if err != nil {
				return err
			}
			return a.render(cmd, output.ToggleTable(t), t)
		},
	}
}

func parseCell(args []string) (ledger.Cell, error) {
	month, err := strconv.Atoi(args[1])
	if err != nil {
		return ledger.Cell{}, errors.NewValidationError("month", args[1], "must be an integer")
	}
	year, err := strconv.Atoi(args[2])
	if err != nil {
		return ledger.Cell{}, errors.NewValidationError("year", args[2], "must be an integer")
	}
	cell := ledger.Cell{ClientID: args[0], Month: month, Year: year}
	return cell, cell.Validate()
}

// NewImportCommand extracts payments from two documents and merges them.
func (a *App) NewImportCommand() *cobra.Command {
	var yes, dryRun bool
	cmd := &cobra.Command{
		Use:     "import <billing-file> <statement-file>",
		GroupID: "ledger",
		Short:   "Import payments from a billing list and a bank statement",
		Long: `Import reads a billing list and a bank statement (.xlsx, .xls, .csv,
.txt or .pdf), extracts the payments and new clients they show, and
merges them into the ledger after confirmation.

Manual payments are never replaced. Imported payments are replaced by
the latest import.`,
		Example: `  concilia import faturamento.xlsx extrato.pdf
  concilia import faturamento.csv extrato.csv --dry-run -o json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			billing, err := documents.PrepareFile(args[0])
			if err != nil {
				return err
			}
			statement, err := documents.PrepareFile(args[1])
			if err != nil {
				return err
			}

			c, err := a.Client(cmd.Context())
			if err != nil {
				return err
			}

			a.logger.Info().Str("billing", args[0]).Str("statement", args[1]).Msg("extracting documents")
			preview, err := c.PreviewImport(cmd.Context(), billing, statement)
			if err != nil {
				return err
			}

			if err := a.printPreview(cmd, preview); err != nil {
				return err
			}
			if dryRun {
				return nil
			}
			if !preview.DryRun.HasChanges() {
				fmt.Fprintln(cmd.ErrOrStderr(), "Nothing to change.")
				return nil
			}
			if !yes && !confirm(cmd, "Apply these changes?") {
				fmt.Fprintln(cmd.ErrOrStderr(), "Import discarded.")
				return nil
			}

			res, err := c.CommitImport(cmd.Context(), preview)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), res.Summary())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "apply without asking")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the changes without applying them")
	return cmd
}

func (a *App) printPreview(cmd *cobra.Command, p *importer.Preview) error {
	if output.DetectFormat(a.config.Output) != output.FormatTable {
		return output.NewFormatter(output.DetectFormat(a.config.Output)).Format(cmd.OutOrStdout(), p)
	}

	formatter := output.NewFormatter(output.FormatTable)
	if err := formatter.Format(cmd.OutOrStdout(), output.ChangesetTable(p.DryRun.Changeset)); err != nil {
		return err
	}
	if len(p.Hints) > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "\nNew clients that resemble known ones:")
		return formatter.Format(cmd.OutOrStdout(), output.HintsTable(p.Hints))
	}
	return nil
}

// confirm asks a yes/no question on the command's input.
func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N] ", question)
	answer, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes", "s", "sim":
		return true
	default:
		return false
	}
}

// NewVersionCommand shows version information.
func (a *App) NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("concilia %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
			}
		},
	}
}
