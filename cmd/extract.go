package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ddlconv/ddlconv/internal/ddl"
	"github.com/ddlconv/ddlconv/internal/diag"
)

var extractOutput string

var extractCmd = &cobra.Command{
	Use:   "extract <ddl-file>",
	Short: "Extract the table schema from a DDL as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cat, err := loadCatalog(cfg)
		if err != nil {
			return err
		}
		_, text, err := readInput(args[0])
		if err != nil {
			return err
		}

		res, err := ddl.ExtractWith(text, cat)
		if err != nil {
			return err
		}

		if extractOutput == "" {
			data, err := res.Table.ToYAML()
			if err != nil {
				return err
			}
			os.Stdout.Write(data)
			printWarnings(res.Warnings)
			return nil
		}

		if err := res.Table.WriteYAML(extractOutput); err != nil {
			return fmt.Errorf("writing schema: %w", err)
		}
		fmt.Println(res.Table.Summary())
		fmt.Printf("\nSchema written to %s\n", extractOutput)
		printWarnings(res.Warnings)
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "output file (default: stdout)")
	rootCmd.AddCommand(extractCmd)
}

func printWarnings(warnings []diag.Warning) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintf(os.Stderr, "\n%d warning(s):\n", len(warnings))
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "  - %s\n", w)
	}
}
