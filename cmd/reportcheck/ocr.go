package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/reportcheck/internal/ocr"
	"github.com/jackzampolin/reportcheck/internal/output"
	"github.com/jackzampolin/reportcheck/internal/svcctx"
)

var ocrTokens bool

// ocrResult is the printed form of one OCR pass.
type ocrResult struct {
	Image    string      `json:"image" yaml:"image"`
	Detector string      `json:"detector" yaml:"detector"`
	Words    []string    `json:"words" yaml:"words"`
	Tokens   []ocr.Token `json:"tokens,omitempty" yaml:"tokens,omitempty"`
}

var ocrCmd = &cobra.Command{
	Use:   "ocr <image>",
	Short: "Run text detection and normalization on a screenshot",
	Long: `Run the configured detector on a screenshot, merge overlapping and
same-line fragments, and print the resulting words: the text the oracle sees.

Examples:
  reportcheck ocr images/42.jpg
  reportcheck ocr images/42.jpg --tokens -o json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cleanup, err := setup(cmd, setupOptions{})
		if err != nil {
			return err
		}
		defer cleanup()
		svc := svcctx.ServicesFrom(ctx)
		cfg := svc.Config.Get()

		img, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read image: %w", err)
		}
		pipeline, err := newPipeline(svc, cfg)
		if err != nil {
			return err
		}

		tokens, err := pipeline.Tokens(ctx, img)
		if err != nil {
			return err
		}
		res := ocrResult{Image: args[0], Detector: cfg.OCR.Detector, Words: ocr.Words(tokens)}
		if ocrTokens {
			res.Tokens = tokens
		}
		return output.Print(res)
	},
}

func init() {
	ocrCmd.Flags().BoolVar(&ocrTokens, "tokens", false, "include merged tokens with bounding boxes")
	rootCmd.AddCommand(ocrCmd)
}
