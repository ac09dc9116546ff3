// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/pdfextract/internal/describe"
	"github.com/pdiddy/pdfextract/internal/ocr"
	"github.com/pdiddy/pdfextract/pkg/types"
)

const (
	// defaultToolImage runs pdftoppm and pdftohtml when poppler is not
	// installed locally.
	defaultToolImage = "minidocks/poppler:latest"

	defaultTimeout    = 120 * time.Second
	defaultMaxRetries = 5
)

// bindFlags binds every local flag of cmd to the viper key
// "<section>.<flag>", so config files and PDFEXTRACT_<SECTION>_<FLAG>
// environment variables supply values for flags left unset.
func bindFlags(v *viper.Viper, cmd *cobra.Command, section string) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(section+"."+f.Name, f)
	})
}

func figureConfig(v *viper.Viper) (types.FigureConfig, error) {
	cfg := types.FigureConfig{
		Tool:             types.ToolConfig{Image: v.GetString("figures.poppler-image")},
		Backend:          types.LayoutBackend(v.GetString("figures.backend")),
		CaptionThreshold: v.GetFloat64("figures.threshold"),
		MinOverlap:       v.GetFloat64("figures.min-overlap"),
		OutputDir:        v.GetString("figures.output-dir"),
		ManifestFormat:   types.ManifestFormat(v.GetString("figures.manifest")),
	}
	if err := checkLayoutBackend(cfg.Backend); err != nil {
		return cfg, err
	}
	switch cfg.ManifestFormat {
	case types.ManifestJSON, types.ManifestYAML:
	default:
		return cfg, fmt.Errorf("unknown manifest format %q (want json or yaml)", cfg.ManifestFormat)
	}
	if cfg.CaptionThreshold < 0 {
		return cfg, fmt.Errorf("threshold must not be negative, got %v", cfg.CaptionThreshold)
	}
	if cfg.MinOverlap < 0 || cfg.MinOverlap >= 1 {
		return cfg, fmt.Errorf("min-overlap must be in [0, 1), got %v", cfg.MinOverlap)
	}
	return cfg, nil
}

func textConfig(v *viper.Viper) (types.TextConfig, error) {
	cfg := types.TextConfig{
		Tool:      types.ToolConfig{Image: v.GetString("text.poppler-image")},
		Backend:   types.LayoutBackend(v.GetString("text.backend")),
		OutputDir: v.GetString("text.output-dir"),
	}
	return cfg, checkLayoutBackend(cfg.Backend)
}

func ocrConfig(v *viper.Viper) (types.OCRConfig, error) {
	cfg := types.OCRConfig{
		Tool:        types.ToolConfig{Image: v.GetString("ocr.poppler-image")},
		Rasterizer:  types.RasterBackend(v.GetString("ocr.rasterizer")),
		DPI:         v.GetInt("ocr.dpi"),
		Language:    v.GetString("ocr.lang"),
		PageSegMode: v.GetInt("ocr.psm"),
		SaveImages:  v.GetBool("ocr.save-images"),
		OutputDir:   v.GetString("ocr.output-dir"),
	}
	if cfg.DPI <= 0 {
		cfg.DPI = ocr.DefaultDPI
	}
	if cfg.Language == "" {
		cfg.Language = ocr.DefaultLanguage
	}
	return cfg, checkRasterBackend(cfg.Rasterizer)
}

func describeConfig(v *viper.Viper) (types.DescribeConfig, error) {
	cfg := types.DescribeConfig{
		AIConfig: types.AIConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   v.GetDuration("describe.timeout"),
				UserAgent: "pdfextract/" + version,
			},
			Model:      v.GetString("describe.model"),
			BaseURL:    v.GetString("describe.base-url"),
			MaxRetries: v.GetInt("describe.max-retries"),
		},
		Tool:         types.ToolConfig{Image: v.GetString("describe.poppler-image")},
		Backend:      types.DescribeBackend(v.GetString("describe.backend")),
		Rasterizer:   types.RasterBackend(v.GetString("describe.rasterizer")),
		DPI:          v.GetInt("describe.dpi"),
		MaxSide:      v.GetInt("describe.max-side"),
		Question:     v.GetString("describe.question"),
		MaxNewTokens: v.GetInt("describe.max-new-tokens"),
		OutputDir:    v.GetString("describe.output-dir"),
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.DPI <= 0 {
		cfg.DPI = describe.DefaultDPI
	}
	if cfg.MaxNewTokens <= 0 {
		cfg.MaxNewTokens = describe.DefaultMaxNewTokens
	}
	if cfg.Question == "" {
		cfg.Question = describe.DefaultQuestion
	}
	switch cfg.Backend {
	case types.DescribeHF:
		if cfg.Model == "" {
			cfg.Model = describe.DefaultModel
		}
	case types.DescribeOpenAI:
		if cfg.Model == "" {
			return cfg, fmt.Errorf("the openai backend needs --model")
		}
	default:
		return cfg, fmt.Errorf("unknown describe backend %q (want hf or openai)", cfg.Backend)
	}
	if cfg.MaxSide < 0 {
		return cfg, fmt.Errorf("max-side must not be negative, got %d", cfg.MaxSide)
	}
	return cfg, checkRasterBackend(cfg.Rasterizer)
}

func checkLayoutBackend(b types.LayoutBackend) error {
	switch b {
	case types.LayoutPDF, types.LayoutPoppler:
		return nil
	}
	return fmt.Errorf("unknown layout backend %q (want pdf or poppler)", b)
}

func checkRasterBackend(b types.RasterBackend) error {
	switch b {
	case types.RasterPdftoppm, types.RasterMuPDF:
		return nil
	}
	return fmt.Errorf("unknown rasterizer %q (want pdftoppm or mupdf)", b)
}

// newHTTPClient returns the client used by the model backends.
func newHTTPClient(cfg types.HTTPConfig) *http.Client {
	return &http.Client{Timeout: cfg.Timeout}
}
