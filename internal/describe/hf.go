// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package describe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/pdiddy/pdfextract/internal/httputil"
	"github.com/pdiddy/pdfextract/internal/log"
)

// hfPromptTmpl embeds the page as a markdown image followed by the
// question, the input format of Idefics-style models on the Inference API.
var hfPromptTmpl = template.Must(template.New("hf").Parse("![image]({{.Image}})\n\n{{.Question}}"))

// hfBaseURL is the Inference API root. Package-level var for test
// substitution.
var hfBaseURL = "https://api-inference.huggingface.co"

// HFInference describes pages with a model on the Hugging Face Inference
// API.
type HFInference struct {
	APIKey       string
	Model        string
	BaseURL      string
	MaxNewTokens int
	MaxRetries   int
	UserAgent    string
	Client       *http.Client
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	MaxNewTokens int `json:"max_new_tokens"`
}

func (h *HFInference) endpoint() string {
	base := h.BaseURL
	if base == "" {
		base = hfBaseURL
	}
	model := h.Model
	if model == "" {
		model = DefaultModel
	}
	return strings.TrimRight(base, "/") + "/models/" + model
}

// Describe implements Describer. Transport failures and non-2xx responses
// are errors. A body that cannot be read as generated text is logged and
// yields Placeholder.
func (h *HFInference) Describe(ctx context.Context, jpeg []byte, question string) (string, error) {
	var prompt strings.Builder
	if err := hfPromptTmpl.Execute(&prompt, struct{ Image, Question string }{dataURL(jpeg), question}); err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}

	maxNew := h.MaxNewTokens
	if maxNew <= 0 {
		maxNew = DefaultMaxNewTokens
	}
	body, err := json.Marshal(hfRequest{Inputs: prompt.String(), Parameters: hfParameters{MaxNewTokens: maxNew}})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.APIKey)
	}
	if h.UserAgent != "" {
		req.Header.Set("User-Agent", h.UserAgent)
	}

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := httputil.DoWithRetry(ctx, client, req, h.MaxRetries)
	if err != nil {
		return "", fmt.Errorf("calling inference API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("inference API returned %d: %s", resp.StatusCode, snippet(respBody))
	}

	text, err := parseGenerated(respBody)
	if err != nil {
		log.Warnf("parsing inference response: %v", err)
		return Placeholder, nil
	}
	return text, nil
}

// parseGenerated reads the first element of a JSON list, either a string
// or an object carrying generated_text.
func parseGenerated(body []byte) (string, error) {
	var list []json.RawMessage
	if err := json.Unmarshal(body, &list); err != nil {
		return "", fmt.Errorf("response is not a JSON list: %w", err)
	}
	if len(list) == 0 {
		return "", fmt.Errorf("response list is empty")
	}

	var s string
	if err := json.Unmarshal(list[0], &s); err == nil {
		return s, nil
	}
	var obj struct {
		GeneratedText *string `json:"generated_text"`
	}
	if err := json.Unmarshal(list[0], &obj); err != nil || obj.GeneratedText == nil {
		return "", fmt.Errorf("first element has no generated_text: %s", snippet(list[0]))
	}
	return *obj.GeneratedText, nil
}

// snippet returns at most 200 bytes of b, cut on a rune boundary.
func snippet(b []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(b))
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
