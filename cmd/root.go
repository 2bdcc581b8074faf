// Package cmd implements command-line functionality for s3mock.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dongdio/s3mock/global"
)

// Default CLI descriptions
const (
	ShortDescription = "An in-process emulator of the S3 object storage HTTP API."

	LongDescription = `s3mock serves a subset of the S3 REST API — buckets, versioned
objects, multipart uploads, tagging, ACLs and conditional requests — backed
by a local filesystem, for use in tests and local development.`
)

// RootCmd represents the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "s3mock",
	Short: ShortDescription,
	Long:  LongDescription,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main() exactly once.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(
		&global.DataDir,
		"data",
		"data",
		"Specify the data directory for configuration and storage",
	)

	RootCmd.PersistentFlags().BoolVar(
		&global.Debug,
		"debug",
		false,
		"Enable debug mode with additional logging",
	)

	RootCmd.PersistentFlags().BoolVar(
		&global.LogStd,
		"log-std",
		false,
		"Also write log output to standard output alongside the log file",
	)
}
