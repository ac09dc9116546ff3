package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pdfextract/internal/batch"
	"github.com/pdiddy/pdfextract/internal/describe"
	"github.com/pdiddy/pdfextract/internal/secrets"
	"github.com/pdiddy/pdfextract/pkg/types"
)

var describeCmd = &cobra.Command{
	Use:   "describe [pdfs...]",
	Short: "Describe each page with a hosted vision-language model",
	Long: `Describe rasterizes each page, sends it to a vision-language model with
--question, saves the page as page_N.jpg, and writes the answers to
extracted_text.json.

The hf backend calls the Hugging Face Inference API and reads its token from
HF_TOKEN or .secrets/hf-token. The openai backend calls any OpenAI-compatible
chat completions endpoint (see --base-url) and reads OPENAI_API_KEY or
.secrets/openai-api-key.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDescribe,
}

func init() {
	describeCmd.Flags().String("backend", string(types.DescribeHF), "model API (hf or openai)")
	describeCmd.Flags().String("model", "", "model identifier (default "+describe.DefaultModel+" for hf)")
	describeCmd.Flags().String("base-url", "", "API endpoint root override")
	describeCmd.Flags().String("question", describe.DefaultQuestion, "instruction sent with each page")
	describeCmd.Flags().Int("max-new-tokens", describe.DefaultMaxNewTokens, "maximum description length in tokens")
	describeCmd.Flags().Int("max-retries", defaultMaxRetries, "retries on rate limiting or model loading")
	describeCmd.Flags().String("rasterizer", string(types.RasterPdftoppm), "page rasterizer (pdftoppm or mupdf)")
	describeCmd.Flags().Int("dpi", describe.DefaultDPI, "rasterization resolution")
	describeCmd.Flags().Int("max-side", 0, "downscale pages whose longer side exceeds this many pixels before sending (0 keeps full size)")
	describeCmd.Flags().Duration("timeout", defaultTimeout, "HTTP request timeout")
	describeCmd.Flags().String("output-dir", "output", "directory for page images and extracted_text.json")
	describeCmd.Flags().String("poppler-image", defaultToolImage, "container image for pdftoppm when it is not installed")
	bindFlags(viper.GetViper(), describeCmd, "describe")

	rootCmd.AddCommand(describeCmd)
}

func runDescribe(cmd *cobra.Command, args []string) error {
	cfg, err := describeConfig(viper.GetViper())
	if err != nil {
		return err
	}
	d, err := newDescriber(&cfg)
	if err != nil {
		return err
	}
	r, err := newRasterizer(cfg.Rasterizer, cfg.Tool)
	if err != nil {
		return err
	}

	w := os.Stdout
	_, err = batch.Run(cmd.Context(), args, cfg.OutputDir, w, func(ctx context.Context, pdfPath, outDir string) error {
		docCfg := cfg
		docCfg.OutputDir = outDir
		_, err := describe.Document(ctx, r, d, pdfPath, docCfg, w)
		return err
	})
	return err
}

// newDescriber resolves the API key for the configured backend and builds
// the model client.
func newDescriber(cfg *types.DescribeConfig) (describe.Describer, error) {
	client := newHTTPClient(cfg.HTTPConfig)
	switch cfg.Backend {
	case types.DescribeOpenAI:
		cfg.APIKey = secrets.Resolve(loadedSecrets, secrets.KeyOpenAIKey, secrets.EnvOpenAIKey)
		if cfg.APIKey == "" && cfg.BaseURL == "" {
			return nil, fmt.Errorf("no OpenAI API key: set %s or .secrets/%s", secrets.EnvOpenAIKey, secrets.KeyOpenAIKey)
		}
		return describe.NewOpenAI(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.MaxNewTokens, cfg.MaxRetries, client), nil
	default:
		cfg.APIKey = secrets.Resolve(loadedSecrets, secrets.KeyHFToken, secrets.EnvHFToken)
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("no Hugging Face token: set %s or .secrets/%s", secrets.EnvHFToken, secrets.KeyHFToken)
		}
		return &describe.HFInference{
			APIKey:       cfg.APIKey,
			Model:        cfg.Model,
			BaseURL:      cfg.BaseURL,
			MaxNewTokens: cfg.MaxNewTokens,
			MaxRetries:   cfg.MaxRetries,
			UserAgent:    cfg.UserAgent,
			Client:       client,
		}, nil
	}
}
