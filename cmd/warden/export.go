package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"fleetgrid/warden/pkg/ledger/export"
	"fleetgrid/warden/pkg/warden"
)

var exportFlags struct {
	tenant string
	from   string
	to     string
	format string
	out    string
	pretty bool
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a compliance audit bundle from the ledger",
	Long: `Export every verdict, violation, and execution for a tenant over a
time window.

JSON produces a single audit bundle document. CSV produces two flat tables,
<out>_violations.csv and <out>_executions.csv, for spreadsheet review.

Examples:
  # Last 24 hours as JSON to stdout
  warden export --tenant fleet-north

  # Explicit window, pretty JSON to a file
  warden export --tenant fleet-north \
    --from 2026-03-01T00:00:00Z --to 2026-03-02T00:00:00Z \
    --out audit.json --pretty

  # CSV tables
  warden export --tenant fleet-north --format csv --out audit`,
	RunE: exportAudit,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportFlags.tenant, "tenant", "t", "", "tenant id (required)")
	exportCmd.Flags().StringVar(&exportFlags.from, "from", "", "window start (RFC3339, default 24h ago)")
	exportCmd.Flags().StringVar(&exportFlags.to, "to", "", "window end (RFC3339, default now)")
	exportCmd.Flags().StringVar(&exportFlags.format, "format", "json", "output format: json, csv")
	exportCmd.Flags().StringVarP(&exportFlags.out, "out", "o", "", "output path (default stdout; required for csv)")
	exportCmd.Flags().BoolVar(&exportFlags.pretty, "pretty", false, "indent JSON output")
	_ = exportCmd.MarkFlagRequired("tenant")
}

func exportAudit(cmd *cobra.Command, args []string) error {
	from, to, err := exportWindow()
	if err != nil {
		return err
	}

	cfg, err := loadRunConfig()
	if err != nil {
		return err
	}

	ledgerStore, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer ledgerStore.Close()

	svc := warden.New(nil, nil, nil, ledgerStore, nil)
	bundle, err := svc.ExportComplianceAudit(cmd.Context(), exportFlags.tenant, from, to)
	if err != nil {
		return fmt.Errorf("collect audit bundle: %w", err)
	}

	switch exportFlags.format {
	case "json":
		w := os.Stdout
		if exportFlags.out != "" {
			f, err := os.Create(exportFlags.out)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		if err := export.NewJSONExporter(exportFlags.pretty).Export(cmd.Context(), bundle, w); err != nil {
			return err
		}

	case "csv":
		if exportFlags.out == "" {
			return fmt.Errorf("--out is required for csv output")
		}
		exporter := export.NewCSVExporter()

		vf, err := os.Create(exportFlags.out + "_violations.csv")
		if err != nil {
			return err
		}
		defer vf.Close()
		if err := exporter.ExportViolations(cmd.Context(), bundle.Violations, vf); err != nil {
			return err
		}

		xf, err := os.Create(exportFlags.out + "_executions.csv")
		if err != nil {
			return err
		}
		defer xf.Close()
		if err := exporter.ExportExecutions(cmd.Context(), bundle.Executions, xf); err != nil {
			return err
		}

	default:
		return fmt.Errorf("unsupported format: %s", exportFlags.format)
	}

	fmt.Fprintf(os.Stderr, "Exported %d verdicts, %d violations, %d executions\n",
		len(bundle.Verdicts), len(bundle.Violations), len(bundle.Executions))
	return nil
}

func exportWindow() (time.Time, time.Time, error) {
	to := time.Now().UTC()
	from := to.Add(-24 * time.Hour)

	if exportFlags.from != "" {
		t, err := time.Parse(time.RFC3339, exportFlags.from)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from: %w", err)
		}
		from = t
	}
	if exportFlags.to != "" {
		t, err := time.Parse(time.RFC3339, exportFlags.to)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to: %w", err)
		}
		to = t
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("--from must precede --to")
	}
	return from, to, nil
}
