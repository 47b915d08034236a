package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ddlconv/ddlconv/internal/aws"
	"github.com/ddlconv/ddlconv/internal/engine"
	"github.com/ddlconv/ddlconv/internal/tableconfig"
)

var (
	publishRegistry bool
	publishS3       bool
	publishCheck    bool
)

var publishCmd = &cobra.Command{
	Use:   "publish <config.json>",
	Short: "Publish a configuration to the registry and/or S3",
	Long: `Publish stores each table of a configuration document in the configured
registry (file, postgres or mongodb) and uploads the configuration and its
dictionary CSV to the configured S3 bucket.

Without --registry or --s3 both configured destinations are used.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		doc, err := tableconfig.LoadJSON(args[0])
		if err != nil {
			return err
		}

		eng, err := engine.New(cfg, cliLogger(cfg))
		if err != nil {
			return err
		}
		defer eng.Close()

		opts := engine.PublishOptions{Registry: publishRegistry, S3: publishS3}
		if !opts.Registry && !opts.S3 {
			opts.Registry = true
			opts.S3 = cfg.Publish.S3Bucket != ""
		}
		if opts.Registry {
			if err := attachRegistry(ctx, eng); err != nil {
				return err
			}
		}
		if opts.S3 {
			if err := attachUploader(ctx, eng); err != nil {
				return err
			}
		}

		res, err := eng.Publish(ctx, doc, filepath.Base(args[0]), opts)
		if err != nil {
			return err
		}
		for _, rec := range res.Records {
			fmt.Printf("registry  %-20s %s\n", rec.Table, rec.Hash[:12])
		}
		for _, up := range res.Uploads {
			fmt.Printf("s3        %s\n", up.ConfigURI)
			if up.DictionaryURI != "" {
				fmt.Printf("s3        %s\n", up.DictionaryURI)
			}
		}
		return nil
	},
}

func init() {
	publishCmd.Flags().BoolVar(&publishRegistry, "registry", false, "store in the configured registry")
	publishCmd.Flags().BoolVar(&publishS3, "s3", false, "upload to the configured S3 bucket")
	publishCmd.Flags().BoolVar(&publishCheck, "check", false, "verify AWS credentials and bucket access before uploading")
	rootCmd.AddCommand(publishCmd)
}

// attachUploader connects to AWS and sets the engine's S3 uploader.
func attachUploader(ctx context.Context, eng *engine.Engine) error {
	pc := eng.Config.Publish
	if pc.S3Bucket == "" {
		return errors.New("publish.s3_bucket is not configured")
	}
	client, err := aws.NewRealClient(ctx, pc.Profile, pc.Region)
	if err != nil {
		return err
	}
	if publishCheck {
		pre, err := aws.Preflight(ctx, client, pc.S3Bucket, pc.S3Prefix)
		if err != nil {
			return err
		}
		if !pre.OK() {
			return fmt.Errorf("AWS preflight failed: %v", pre.Errors)
		}
		eng.Logger.Info("AWS preflight passed", "account", pre.Identity.Account, "existing_keys", pre.ExistingKeys)
	}
	eng.Uploader = aws.NewArtifactUploader(client, pc.S3Bucket, pc.S3Prefix)
	return nil
}
