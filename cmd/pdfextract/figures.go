package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/pdfextract/internal/batch"
	"github.com/pdiddy/pdfextract/internal/container"
	"github.com/pdiddy/pdfextract/internal/figures"
	"github.com/pdiddy/pdfextract/internal/layout"
	"github.com/pdiddy/pdfextract/pkg/types"
)

var figuresCmd = &cobra.Command{
	Use:   "figures [pdfs...]",
	Short: "Extract images together with the caption printed below them",
	Long: `Figures locates every embedded image on each page and the text blocks
directly below it. A block is part of the caption when the gap between the
image bottom and the block top is at most --threshold points and the block
covers more than --min-overlap of the image width. Each captioned image is
written as page<N>_img<I>.<ext> with a .txt caption sidecar, and the
records are listed in figures.json (or figures.yaml).

With --threshold 0 the backend default applies: 10pt for the pdf backend,
50pt for poppler.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFigures,
}

func init() {
	addFigureFlags(figuresCmd.Flags())
	bindFlags(viper.GetViper(), figuresCmd, "figures")

	rootCmd.AddCommand(figuresCmd)
}

func addFigureFlags(fs *pflag.FlagSet) {
	fs.String("backend", string(types.LayoutPDF), "layout parser (pdf or poppler)")
	fs.Float64("threshold", 0, "maximum gap in points between image and caption (0 uses the backend default)")
	fs.Float64("min-overlap", 0.3, "horizontal overlap fraction a caption block must exceed")
	fs.String("output-dir", "figures_with_captions", "directory for images, captions, and the manifest")
	fs.String("manifest", string(types.ManifestJSON), "manifest format (json or yaml)")
	fs.String("poppler-image", defaultToolImage, "container image for pdftohtml when it is not installed")
}

func runFigures(cmd *cobra.Command, args []string) error {
	cfg, err := figureConfig(viper.GetViper())
	if err != nil {
		return err
	}
	src, err := newLayoutSource(cfg.Backend, cfg.Tool)
	if err != nil {
		return err
	}

	w := os.Stdout
	_, err = batch.Run(cmd.Context(), args, cfg.OutputDir, w, func(ctx context.Context, pdfPath, outDir string) error {
		docCfg := cfg
		docCfg.OutputDir = outDir
		records, err := figures.Extract(ctx, src, pdfPath, docCfg, w)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%d captioned figures in %s\n", len(records), pdfPath)
		return nil
	})
	return err
}

// newLayoutSource builds the layout parser, detecting a runtime for
// pdftohtml only when the poppler backend needs one.
func newLayoutSource(backend types.LayoutBackend, tool types.ToolConfig) (layout.Source, error) {
	var rt container.Runtime
	if backend == types.LayoutPoppler {
		var err error
		rt, err = container.Detect("pdftohtml", tool.Image)
		if err != nil {
			return nil, fmt.Errorf("pdftohtml: %w", err)
		}
	}
	return layout.NewSource(backend, rt)
}
