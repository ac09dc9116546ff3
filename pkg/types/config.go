package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "pdfextract/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// ToolConfig selects how external command-line tools (poppler's pdftoppm and
// pdftohtml) are executed.
type ToolConfig struct {
	// Image is the container image used when the tools are not installed
	// locally and docker or podman is available.
	Image string `json:"image" yaml:"image"`
}

// LayoutBackend identifies the PDF layout parser used to locate image and
// text blocks on a page.
type LayoutBackend string

const (
	// LayoutPDF parses the PDF in process (bottom-left origin).
	LayoutPDF LayoutBackend = "pdf"
	// LayoutPoppler runs pdftohtml -xml (top-left origin).
	LayoutPoppler LayoutBackend = "poppler"
)

// DefaultThreshold returns the caption threshold, in points, that the
// backend uses when none is configured.
func (b LayoutBackend) DefaultThreshold() float64 {
	if b == LayoutPoppler {
		return 50
	}
	return 10
}

// ManifestFormat selects the encoding of the figure manifest file.
type ManifestFormat string

const (
	ManifestJSON ManifestFormat = "json"
	ManifestYAML ManifestFormat = "yaml"
)

// FigureConfig holds settings for figure/caption extraction.
type FigureConfig struct {
	Tool ToolConfig `json:"tool" yaml:"tool"`

	// Backend selects the layout parser.
	Backend LayoutBackend `json:"backend" yaml:"backend"`

	// CaptionThreshold is the maximum vertical gap, in points, between the
	// bottom of an image and the top of a caption block.
	CaptionThreshold float64 `json:"caption_threshold" yaml:"caption_threshold"`

	// MinOverlap is the horizontal overlap fraction (of the image width) a
	// caption block must exceed (default 0.3).
	MinOverlap float64 `json:"min_overlap" yaml:"min_overlap"`

	// OutputDir receives the image files, caption sidecars, and manifest.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// ManifestFormat selects figures.json or figures.yaml.
	ManifestFormat ManifestFormat `json:"manifest_format" yaml:"manifest_format"`
}

// TextConfig holds settings for whole-page text extraction.
type TextConfig struct {
	Tool ToolConfig `json:"tool" yaml:"tool"`

	Backend LayoutBackend `json:"backend" yaml:"backend"`

	OutputDir string `json:"output_dir" yaml:"output_dir"`
}

// RasterBackend identifies the page rasterizer.
type RasterBackend string

const (
	RasterPdftoppm RasterBackend = "pdftoppm"
	RasterMuPDF    RasterBackend = "mupdf"
)

// OCRConfig holds settings for the OCR stage.
type OCRConfig struct {
	Tool ToolConfig `json:"tool" yaml:"tool"`

	Rasterizer RasterBackend `json:"rasterizer" yaml:"rasterizer"`

	// DPI is the rasterization resolution (default 300).
	DPI int `json:"dpi" yaml:"dpi"`

	// Language is the Tesseract language (default "chi_sim").
	Language string `json:"language" yaml:"language"`

	// PageSegMode is the Tesseract page segmentation mode (0 keeps the default).
	PageSegMode int `json:"page_seg_mode" yaml:"page_seg_mode"`

	// SaveImages writes page_N.png next to each page_N.txt.
	SaveImages bool `json:"save_images" yaml:"save_images"`

	OutputDir string `json:"output_dir" yaml:"output_dir"`
}

// DescribeBackend identifies the hosted vision-language model API.
type DescribeBackend string

const (
	DescribeHF     DescribeBackend = "hf"
	DescribeOpenAI DescribeBackend = "openai"
)

// AIConfig holds shared settings for stages that call a hosted model.
type AIConfig struct {
	HTTPConfig `yaml:",inline"`

	// Model is the model identifier (e.g. "HuggingFaceM4/Idefics3-8B-Llama3").
	Model string `json:"model" yaml:"model"`

	// BaseURL overrides the API endpoint root.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// APIKey is the authentication key for the API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries bounds retries on HTTP 429 (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// DescribeConfig holds settings for the page description stage.
type DescribeConfig struct {
	AIConfig `yaml:",inline"`

	Tool ToolConfig `json:"tool" yaml:"tool"`

	Backend DescribeBackend `json:"backend" yaml:"backend"`

	Rasterizer RasterBackend `json:"rasterizer" yaml:"rasterizer"`

	// DPI is the rasterization resolution (default 200).
	DPI int `json:"dpi" yaml:"dpi"`

	// MaxSide downscales page images whose longer side exceeds it before
	// they are sent to the model (0 sends full resolution).
	MaxSide int `json:"max_side" yaml:"max_side"`

	// Question is the instruction sent with each page.
	Question string `json:"question" yaml:"question"`

	// MaxNewTokens bounds the generated description length (default 500).
	MaxNewTokens int `json:"max_new_tokens" yaml:"max_new_tokens"`

	OutputDir string `json:"output_dir" yaml:"output_dir"`
}
