package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"SigSecure/internal/config"
	"SigSecure/internal/entity"
	"SigSecure/internal/pipeline"
	"SigSecure/pkg/audit"
	"SigSecure/pkg/pdf"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

var (
	redactOutput        string
	redactMode          string
	redactStyle         string
	redactHighlightOnly bool
	redactAuditPath     string
	redactVerbose       bool
)

var redactCmd = &cobra.Command{
	Use:   "redact INPUT.pdf",
	Short: "Redact one PDF and print the summary as JSON",
	Long: `Redact one PDF with the signature-anchored pipeline.

Privacy modes:
  none    - detect only, stamp provenance
  signer  - redact around signer signatures
  witness - redact around witness signatures
  medical - redact everything except regions naming a doctor, plus photos

Styles: black, blur, watermark. --highlight-only outlines targets instead of
removing them.

Examples:
  sigsecure redact contract.pdf --mode signer
  sigsecure redact chart.pdf --mode medical --style blur -o chart_clean.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runRedact,
}

func init() {
	redactCmd.Flags().StringVarP(&redactOutput, "output", "o", "", "Output path (default redacted_<input> next to the input)")
	redactCmd.Flags().StringVarP(&redactMode, "mode", "m", string(entity.ModeNone), "Privacy mode: none, signer, witness or medical")
	redactCmd.Flags().StringVarP(&redactStyle, "style", "s", "black", "Redaction style: black, blur or watermark")
	redactCmd.Flags().BoolVar(&redactHighlightOnly, "highlight-only", false, "Outline targets without removing content")
	redactCmd.Flags().StringVar(&redactAuditPath, "audit", "", "Append an audit record to this NDJSON file")
	redactCmd.Flags().BoolVarP(&redactVerbose, "verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(redactCmd)
}

func runRedact(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	logger := newLogger(redactVerbose)
	input := args[0]

	f, err := os.Open(input)
	if err != nil {
		return err
	}
	err = pdf.Validate(f)
	f.Close()
	if err != nil {
		return err
	}

	cfg, err := loadPipelineConfig()
	if err != nil {
		return err
	}

	collaborators, err := config.NewCollaborators(logger)
	if err != nil {
		return err
	}
	defer collaborators.Close()

	var opts []pipeline.Option
	var auditLog audit.ILog
	if redactAuditPath != "" {
		auditLog, err = audit.New(redactAuditPath, logger)
		if err != nil {
			return err
		}
		defer auditLog.Close()
		opts = append(opts, pipeline.WithDiagnostics(auditLog))
	}

	output := redactOutput
	if output == "" {
		output = filepath.Join(filepath.Dir(input), "redacted_"+filepath.Base(input))
	}

	p := pipeline.New(cfg, pdf.NewOpener(logger), collaborators.OCR, collaborators.NER, collaborators.Embedder, logger, opts...)
	result, runErr := p.Run(ctx, pipeline.Request{
		InputPath:     input,
		OutputPath:    output,
		FileName:      filepath.Base(input),
		Mode:          entity.PrivacyMode(redactMode),
		Style:         pipeline.ParseStyle(redactStyle),
		HighlightOnly: redactHighlightOnly,
	})

	if auditLog != nil {
		rec := entity.AuditRecord{
			Timestamp:          time.Now().UTC(),
			File:               filepath.Base(input),
			PrivacyMode:        redactMode,
			RedactionStyle:     redactStyle,
			SignaturesDetected: result.SignaturesDetected,
			EntitiesRedacted:   map[string]int{},
			HighlightOnly:      redactHighlightOnly,
		}
		for label, n := range result.EntityCounts {
			rec.EntitiesRedacted[string(label)] = n
		}
		if runErr != nil {
			msg := runErr.Error()
			rec.Error = &msg
		}
		if err := auditLog.Write(rec); err != nil {
			logger.WithField("error", err.Error()).Warn("Failed to append audit record")
		}
	}

	if runErr != nil {
		return fmt.Errorf("redaction failed: %w", runErr)
	}

	out, err := jsoniter.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
