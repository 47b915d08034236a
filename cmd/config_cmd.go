package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ddlconv/ddlconv/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View, validate, and create the ddlconv configuration file.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current config (secrets masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Println("Current configuration:")
		fmt.Println()
		fmt.Printf("  Output:\n")
		fmt.Printf("    Directory:      %s\n", cfg.Output.Directory)
		fmt.Printf("    Uploads:        %s\n", cfg.Output.UploadDirectory)
		fmt.Printf("  Audit policy:     %s\n", cfg.Audit.Policy)
		if cfg.TypeMap.OverridesFile != "" {
			fmt.Printf("  Type overrides:   %s\n", cfg.TypeMap.OverridesFile)
		}
		fmt.Println()
		fmt.Printf("  Server:\n")
		fmt.Printf("    Port:           %d\n", cfg.Server.Port)
		fmt.Printf("    Upload limit:   %d bytes\n", cfg.Server.MaxUploadBytes)
		fmt.Printf("    Extensions:     %s\n", strings.Join(cfg.Server.AllowedExtensions, ", "))
		fmt.Println()
		fmt.Printf("  Registry:\n")
		fmt.Printf("    Backend:        %s\n", cfg.Registry.Backend)
		switch cfg.Registry.Backend {
		case "file":
			fmt.Printf("    Directory:      %s\n", cfg.Registry.Directory)
		case "postgres":
			fmt.Printf("    DSN:            %s\n", maskSecret(cfg.Registry.DSN))
		case "mongodb":
			fmt.Printf("    URI:            %s\n", maskSecret(cfg.Registry.URI))
			fmt.Printf("    Database:       %s\n", cfg.Registry.Database)
		}
		fmt.Printf("    Auto-publish:   %t\n", cfg.Registry.AutoPublish)
		if cfg.Publish.S3Bucket != "" {
			fmt.Println()
			fmt.Printf("  S3:\n")
			fmt.Printf("    Bucket:         %s\n", cfg.Publish.S3Bucket)
			fmt.Printf("    Prefix:         %s\n", cfg.Publish.S3Prefix)
			fmt.Printf("    Region:         %s\n", cfg.Publish.Region)
		}
		fmt.Println()
		fmt.Printf("  Log level:        %s\n", cfg.Logging.Level)
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("config invalid: %w", err)
		}
		if _, err := loadCatalog(cfg); err != nil {
			return fmt.Errorf("config invalid: %w", err)
		}
		fmt.Println("Configuration is valid.")
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		reader := bufio.NewReader(os.Stdin)
		def := config.Default()

		fmt.Println("ddlconv Configuration Setup")
		fmt.Println("===========================")
		fmt.Println()

		cfg := &config.Config{Version: config.CurrentVersion}
		cfg.Output.Directory = prompt(reader, "Output directory", def.Output.Directory)
		cfg.Audit.Policy = prompt(reader, "Audit policy (fixed/inherit/none)", def.Audit.Policy)
		cfg.Registry.Backend = prompt(reader, "Registry backend (file/postgres/mongodb)", def.Registry.Backend)
		switch cfg.Registry.Backend {
		case "postgres":
			cfg.Registry.DSN = prompt(reader, "Postgres DSN (or ${ENV:VAR})", "${ENV:DDLCONV_REGISTRY_DSN}")
		case "mongodb":
			cfg.Registry.URI = prompt(reader, "MongoDB URI (or ${ENV:VAR})", "mongodb://localhost:27017")
		}
		cfg.Publish.S3Bucket = prompt(reader, "S3 bucket (empty to skip)", "")
		if cfg.Publish.S3Bucket != "" {
			cfg.Publish.Region = prompt(reader, "AWS region", "us-east-1")
		}
		fmt.Println()

		cfgPath := config.ExpandHome(config.DefaultPath)
		if cfgFile != "" {
			cfgPath = cfgFile
		}
		if err := cfg.Save(cfgPath); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}

		fmt.Printf("Config written to %s\n", cfgPath)
		fmt.Println()
		fmt.Println("Next steps:")
		fmt.Println("  ddlconv convert <ddl.txt>   Convert a DDL")
		fmt.Println("  ddlconv serve               Start the web UI")
		return nil
	},
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

func prompt(reader *bufio.Reader, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("  %s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("  %s: ", label)
	}
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal
	}
	return input
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
