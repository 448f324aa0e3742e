package commands

import (
	"context"
	"fmt"

	"SigSecure/internal/pipeline"
	"SigSecure/pkg/pdf"
	"SigSecure/pkg/tesseract"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

var detectVerbose bool

var detectCmd = &cobra.Command{
	Use:   "detect INPUT.pdf",
	Short: "List detected signature regions as JSON lines",
	Long: `Run only signature detection and print one JSON object per region with
its page, page-space box, signer/witness type and photo flag.`,
	Args: cobra.ExactArgs(1),
	RunE: runDetect,
}

func init() {
	detectCmd.Flags().BoolVarP(&detectVerbose, "verbose", "v", false, "Debug logging")
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	logger := newLogger(detectVerbose)

	cfg, err := loadPipelineConfig()
	if err != nil {
		return err
	}

	doc, err := pdf.NewOpener(logger).Open(args[0])
	if err != nil {
		return err
	}
	defer doc.Close()

	detector := pipeline.NewDetector(cfg.Normalize(), tesseract.NewEngine(), logger)
	regions := detector.DetectDocument(context.Background(), doc)

	for _, r := range regions {
		line, err := jsoniter.MarshalToString(r)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return nil
}
