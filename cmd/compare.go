package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ddlconv/ddlconv/internal/dictionary"
	"github.com/ddlconv/ddlconv/internal/registry"
	"github.com/ddlconv/ddlconv/internal/report"
)

var (
	comparePrior         string
	comparePriorRegistry string
	compareOutput        string
	compareJSON          bool
	compareReport        string
)

var compareCmd = &cobra.Command{
	Use:   "compare <ddl-file>",
	Short: "Reconcile a new DDL version against a previous configuration",
	Long: `Compare classifies every column of the DDL against a previously generated
configuration. Carried columns keep their target name and description, new
columns are left for curation and removed columns are listed with the
[REMOVIDA] marker.

The reconciled dictionary is written to <output>/dicionarios/<TABLE>.csv.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if (comparePrior == "") == (comparePriorRegistry == "") {
			return errors.New("exactly one of --prior or --prior-registry is required")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		file, text, err := readInput(args[0])
		if err != nil {
			return err
		}

		eng, err := newEngine(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		var (
			prior     []byte
			priorName string
		)
		if comparePrior != "" {
			if prior, err = os.ReadFile(comparePrior); err != nil {
				return fmt.Errorf("reading prior configuration: %w", err)
			}
			priorName = comparePrior
		} else {
			if err := attachRegistry(cmd.Context(), eng); err != nil {
				return err
			}
			if prior, err = eng.LoadPrior(cmd.Context(), comparePriorRegistry); err != nil {
				return err
			}
			priorName = "registry:" + registry.Key(comparePriorRegistry)
		}

		rec, err := eng.Reconcile(cmd.Context(), filepath.Base(file), text, prior, priorName)
		if err != nil {
			return err
		}

		if compareOutput != "" {
			if err := writeRows(compareOutput, rec.Result.Report()); err != nil {
				return err
			}
		}
		if compareReport != "" {
			write := report.WriteJSON
			if strings.EqualFold(filepath.Ext(compareReport), ".txt") {
				write = report.WriteText
			}
			if err := write(rec.Report, compareReport); err != nil {
				return err
			}
		}

		if compareJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rec.Report)
		}
		fmt.Print(report.Render(rec.Report))
		fmt.Printf("\nReconciled dictionary: %s\n", filepath.Join(cfg.Output.Directory, rec.CSVPath))
		return nil
	},
}

func init() {
	compareCmd.Flags().StringVar(&comparePrior, "prior", "", "previous configuration JSON")
	compareCmd.Flags().StringVar(&comparePriorRegistry, "prior-registry", "", "table name of a configuration in the registry")
	compareCmd.Flags().StringVarP(&compareOutput, "output", "o", "", "also write the reconciled dictionary CSV to this file")
	compareCmd.Flags().StringVar(&compareReport, "report", "", "write the comparison report to this file (.txt for plain text, JSON otherwise)")
	compareCmd.Flags().BoolVar(&compareJSON, "json", false, "print the report as JSON")
	rootCmd.AddCommand(compareCmd)
}

func writeRows(path string, rows []dictionary.Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := dictionary.WriteCSV(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
