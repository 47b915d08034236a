package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ddlconv/ddlconv/internal/ddl"
	"github.com/ddlconv/ddlconv/internal/dictionary"
)

var dictionaryOutput string

var dictionaryCmd = &cobra.Command{
	Use:   "dictionary <ddl-file>",
	Short: "Write the automatic dictionary CSV of a DDL",
	Long: `Dictionary writes the identity dictionary of a table: every column renamed
to its lower-cased name, with the DDL label as official description.
Curate it with "ddlconv curate" before running "ddlconv generate".`,
	Args: cobra.ExactArgs(1),
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

		var buf bytes.Buffer
		if err := dictionary.FromSchema(res.Table).WriteCSV(&buf); err != nil {
			return err
		}
		if dictionaryOutput == "" {
			os.Stdout.Write(buf.Bytes())
			printWarnings(res.Warnings)
			return nil
		}
		if err := os.MkdirAll(filepath.Dir(dictionaryOutput), 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
		if err := os.WriteFile(dictionaryOutput, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("writing dictionary: %w", err)
		}
		fmt.Printf("Dictionary of %s (%d columns) written to %s\n", res.Table.Name, len(res.Table.Columns), dictionaryOutput)
		printWarnings(res.Warnings)
		return nil
	},
}

func init() {
	dictionaryCmd.Flags().StringVarP(&dictionaryOutput, "output", "o", "", "output file (default: stdout)")
	rootCmd.AddCommand(dictionaryCmd)
}
