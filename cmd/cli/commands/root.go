package commands

import (
	"os"

	"SigSecure/internal/config"
	"SigSecure/internal/pipeline"
	"SigSecure/pkg/log"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "sigsecure",
	Short: "Signature-anchored PDF redaction",
	Long: `sigsecure finds handwritten signatures in scanned PDFs and redacts the
names, dates and places written next to them.

It runs the same pipeline as the HTTP service against local files.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Pipeline tuning file (YAML, defaults to $PIPELINE_CONFIG)")
}

func loadPipelineConfig() (pipeline.Config, error) {
	path := configPath
	if path == "" {
		path = os.Getenv("PIPELINE_CONFIG")
	}
	return config.LoadPipelineConfig(path)
}

// newLogger keeps the CLI quiet unless asked otherwise via --verbose or
// LOG_LEVEL.
func newLogger(verbose bool) *logrus.Logger {
	logger := log.NewLogger()
	switch {
	case verbose:
		logger.SetLevel(logrus.DebugLevel)
	case os.Getenv("LOG_LEVEL") == "":
		logger.SetLevel(logrus.WarnLevel)
	}
	return logger
}
