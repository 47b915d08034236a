package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ddlconv/ddlconv/internal/engine"
)

var convertOutputDir string

var convertCmd = &cobra.Command{
	Use:   "convert <ddl-file|directory>",
	Short: "Convert a DDL into a dictionary CSV and a configuration JSON",
	Long: `Convert extracts the table from a DB2 DDL script and writes the automatic
dictionary to <output>/dicionarios/<TABLE>.csv and the configuration to
<output>/json/<table>.json.

A directory argument must contain exactly one .txt file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if convertOutputDir != "" {
			cfg.Output.Directory = convertOutputDir
		}

		eng, err := newEngine(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		out, err := eng.ConvertFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Println(out.Table.Summary())
		fmt.Println()
		fmt.Printf("Dictionary:    %s\n", filepath.Join(cfg.Output.Directory, filepath.FromSlash(out.CSVPath)))
		fmt.Printf("Configuration: %s\n", filepath.Join(cfg.Output.Directory, filepath.FromSlash(out.JSONPath)))
		printWarnings(out.Warnings)
		return nil
	},
}

func init() {
	convertCmd.Flags().StringVarP(&convertOutputDir, "output-dir", "o", "", "output directory (default from config)")
	rootCmd.AddCommand(convertCmd)
}

// readInput resolves a file or single-file directory and decodes it.
func readInput(path string) (string, string, error) {
	file, err := engine.ResolveInput(path)
	if err != nil {
		return "", "", err
	}
	text, err := engine.ReadDDL(file)
	if err != nil {
		return "", "", err
	}
	return file, text, nil
}
