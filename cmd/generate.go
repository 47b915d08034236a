package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var (
	generateDictionary string
	generatePrior      string
	generateAudit      string
	generateOutput     string
)

var generateCmd = &cobra.Command{
	Use:   "generate <ddl-file>",
	Short: "Generate the configuration JSON from a curated dictionary",
	Long: `Generate synthesizes the table configuration from the DDL and a curated
dictionary CSV. With --prior, the audit fields of a previous configuration
can be inherited (--audit inherit).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if generateAudit != "" {
			cfg.Audit.Policy = strings.ToLower(generateAudit)
		}

		file, text, err := readInput(args[0])
		if err != nil {
			return err
		}
		dict, err := os.ReadFile(generateDictionary)
		if err != nil {
			return fmt.Errorf("reading dictionary: %w", err)
		}
		var prior []byte
		if generatePrior != "" {
			if prior, err = os.ReadFile(generatePrior); err != nil {
				return fmt.Errorf("reading prior configuration: %w", err)
			}
		}

		eng, err := newEngine(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		out, err := eng.Generate(cmd.Context(), filepath.Base(file), text, dict, prior)
		if err != nil {
			return err
		}

		path := filepath.Join(cfg.Output.Directory, filepath.FromSlash(out.JSONPath))
		if generateOutput != "" {
			if err := out.Document.WriteJSON(generateOutput); err != nil {
				return fmt.Errorf("writing configuration: %w", err)
			}
			path = generateOutput
		}
		fmt.Printf("Configuration of %s written to %s\n", out.TableName(), path)
		printWarnings(out.Warnings)
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVarP(&generateDictionary, "dictionary", "d", "", "curated dictionary CSV (required)")
	generateCmd.Flags().StringVar(&generatePrior, "prior", "", "previous configuration JSON for audit field inheritance")
	generateCmd.Flags().StringVar(&generateAudit, "audit", "", "audit field policy: fixed, inherit or none")
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "also write the configuration to this file")
	generateCmd.MarkFlagRequired("dictionary")
	rootCmd.AddCommand(generateCmd)
}
