package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pdfextract/internal/batch"
	"github.com/pdiddy/pdfextract/internal/container"
	"github.com/pdiddy/pdfextract/internal/ocr"
	"github.com/pdiddy/pdfextract/internal/raster"
	"github.com/pdiddy/pdfextract/pkg/types"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr [pdfs...]",
	Short: "Recognize the text of scanned pages with Tesseract",
	Long: `OCR rasterizes each page, runs Tesseract on it, and writes page_N.txt
per page plus full_text.txt with every page under a "--- Page N ---"
separator. The default language is simplified Chinese (chi_sim); the
traineddata for the chosen language must be installed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runOCR,
}

func init() {
	ocrCmd.Flags().String("rasterizer", string(types.RasterPdftoppm), "page rasterizer (pdftoppm or mupdf)")
	ocrCmd.Flags().Int("dpi", ocr.DefaultDPI, "rasterization resolution")
	ocrCmd.Flags().String("lang", ocr.DefaultLanguage, "Tesseract language")
	ocrCmd.Flags().Int("psm", 0, "Tesseract page segmentation mode (0 keeps the engine default)")
	ocrCmd.Flags().String("output-dir", "ocr_output", "directory for the page text files")
	ocrCmd.Flags().Bool("save-images", false, "also write page_N.png for every page")
	ocrCmd.Flags().String("poppler-image", defaultToolImage, "container image for pdftoppm when it is not installed")
	bindFlags(viper.GetViper(), ocrCmd, "ocr")

	rootCmd.AddCommand(ocrCmd)
}

func runOCR(cmd *cobra.Command, args []string) error {
	cfg, err := ocrConfig(viper.GetViper())
	if err != nil {
		return err
	}
	r, err := newRasterizer(cfg.Rasterizer, cfg.Tool)
	if err != nil {
		return err
	}
	eng, err := ocr.NewTesseract(ocr.WithLanguage(cfg.Language), ocr.WithPageSegMode(cfg.PageSegMode))
	if err != nil {
		return err
	}
	defer eng.Close()

	w := os.Stdout
	_, err = batch.Run(cmd.Context(), args, cfg.OutputDir, w, func(ctx context.Context, pdfPath, outDir string) error {
		docCfg := cfg
		docCfg.OutputDir = outDir
		_, err := ocr.Pages(ctx, r, eng, pdfPath, docCfg, w)
		return err
	})
	return err
}

// newRasterizer builds the page rasterizer, detecting a runtime for
// pdftoppm only when that backend is selected.
func newRasterizer(backend types.RasterBackend, tool types.ToolConfig) (raster.Rasterizer, error) {
	var rt container.Runtime
	if backend == types.RasterPdftoppm || backend == "" {
		var err error
		rt, err = container.Detect("pdftoppm", tool.Image)
		if err != nil {
			return nil, fmt.Errorf("pdftoppm: %w", err)
		}
	}
	return raster.New(backend, rt)
}
