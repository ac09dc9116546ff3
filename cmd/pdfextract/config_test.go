// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pdfextract/internal/describe"
	"github.com/pdiddy/pdfextract/internal/ocr"
	"github.com/pdiddy/pdfextract/pkg/types"
)

// newFiguresViper binds a fresh copy of the figures flags to a new viper
// instance and parses args into it.
func newFiguresViper(t *testing.T, args ...string) *viper.Viper {
	t.Helper()
	cmd := &cobra.Command{Use: "figures"}
	addFigureFlags(cmd.Flags())
	v := viper.New()
	bindFlags(v, cmd, "figures")
	require.NoError(t, cmd.Flags().Parse(args))
	return v
}

func TestFigureConfigDefaults(t *testing.T) {
	cfg, err := figureConfig(newFiguresViper(t))
	require.NoError(t, err)

	assert.Equal(t, types.LayoutPDF, cfg.Backend)
	assert.Equal(t, 0.0, cfg.CaptionThreshold)
	assert.Equal(t, 0.3, cfg.MinOverlap)
	assert.Equal(t, "figures_with_captions", cfg.OutputDir)
	assert.Equal(t, types.ManifestJSON, cfg.ManifestFormat)
	assert.Equal(t, defaultToolImage, cfg.Tool.Image)
}

func TestFigureConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		set     map[string]any
		wantErr string
	}{
		{"unknown backend", map[string]any{"figures.backend": "pymupdf"}, "unknown layout backend"},
		{"unknown manifest", map[string]any{"figures.manifest": "xml"}, "unknown manifest format"},
		{"negative threshold", map[string]any{"figures.threshold": -1.0}, "threshold"},
		{"overlap of one", map[string]any{"figures.min-overlap": 1.0}, "min-overlap"},
		{"poppler yaml", map[string]any{"figures.backend": "poppler", "figures.manifest": "yaml"}, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := newFiguresViper(t)
			for k, val := range tc.set {
				v.Set(k, val)
			}
			_, err := figureConfig(v)
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestBindFlagsEnvironment(t *testing.T) {
	t.Setenv("PDFEXTRACT_FIGURES_BACKEND", "poppler")
	t.Setenv("PDFEXTRACT_FIGURES_MIN_OVERLAP", "0.5")

	v := newFiguresViper(t)
	v.SetEnvPrefix("PDFEXTRACT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	cfg, err := figureConfig(v)
	require.NoError(t, err)
	assert.Equal(t, types.LayoutPoppler, cfg.Backend)
	assert.Equal(t, 0.5, cfg.MinOverlap)
}

func TestBindFlagsFlagWins(t *testing.T) {
	t.Setenv("PDFEXTRACT_FIGURES_BACKEND", "poppler")

	v := newFiguresViper(t, "--backend", "pdf")
	v.SetEnvPrefix("PDFEXTRACT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	cfg, err := figureConfig(v)
	require.NoError(t, err)
	assert.Equal(t, types.LayoutPDF, cfg.Backend)
}

func TestOCRConfigFillsDefaults(t *testing.T) {
	v := viper.New()
	v.Set("ocr.rasterizer", "mupdf")

	cfg, err := ocrConfig(v)
	require.NoError(t, err)
	assert.Equal(t, ocr.DefaultDPI, cfg.DPI)
	assert.Equal(t, ocr.DefaultLanguage, cfg.Language)
	assert.Equal(t, types.RasterMuPDF, cfg.Rasterizer)
}

func TestOCRConfigUnknownRasterizer(t *testing.T) {
	v := viper.New()
	v.Set("ocr.rasterizer", "ghostscript")

	_, err := ocrConfig(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown rasterizer")
}

func TestDescribeConfig(t *testing.T) {
	tests := []struct {
		name      string
		set       map[string]any
		wantModel string
		wantErr   string
	}{
		{
			name:      "hf defaults",
			set:       map[string]any{"describe.backend": "hf", "describe.rasterizer": "pdftoppm"},
			wantModel: describe.DefaultModel,
		},
		{
			name:      "openai with model",
			set:       map[string]any{"describe.backend": "openai", "describe.rasterizer": "mupdf", "describe.model": "gpt-4o-mini"},
			wantModel: "gpt-4o-mini",
		},
		{
			name:    "openai without model",
			set:     map[string]any{"describe.backend": "openai", "describe.rasterizer": "mupdf"},
			wantErr: "needs --model",
		},
		{
			name:    "unknown backend",
			set:     map[string]any{"describe.backend": "replicate", "describe.rasterizer": "mupdf"},
			wantErr: "unknown describe backend",
		},
		{
			name:    "negative max side",
			set:     map[string]any{"describe.backend": "hf", "describe.rasterizer": "mupdf", "describe.max-side": -1},
			wantErr: "max-side",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := viper.New()
			for k, val := range tc.set {
				v.Set(k, val)
			}
			cfg, err := describeConfig(v)
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantModel, cfg.Model)
			assert.Equal(t, defaultTimeout, cfg.Timeout)
			assert.Equal(t, defaultMaxRetries, cfg.MaxRetries)
			assert.Equal(t, describe.DefaultDPI, cfg.DPI)
			assert.Equal(t, describe.DefaultMaxNewTokens, cfg.MaxNewTokens)
			assert.Equal(t, describe.DefaultQuestion, cfg.Question)
			assert.Equal(t, "pdfextract/"+version, cfg.UserAgent)
		})
	}
}

func TestNewDescriberNeedsKey(t *testing.T) {
	t.Setenv("HF_TOKEN", "")
	loadedSecrets = nil

	_, err := newDescriber(&types.DescribeConfig{Backend: types.DescribeHF})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HF_TOKEN")
}

func TestNewDescriberUsesSecret(t *testing.T) {
	t.Setenv("HF_TOKEN", "")
	loadedSecrets = map[string]string{"hf-token": "hf_abc"}
	t.Cleanup(func() { loadedSecrets = nil })

	cfg := types.DescribeConfig{
		AIConfig: types.AIConfig{HTTPConfig: types.HTTPConfig{Timeout: time.Second}},
		Backend:  types.DescribeHF,
	}
	d, err := newDescriber(&cfg)
	require.NoError(t, err)

	hf, ok := d.(*describe.HFInference)
	require.True(t, ok)
	assert.Equal(t, "hf_abc", hf.APIKey)
	assert.Equal(t, time.Second, hf.Client.Timeout)
}
