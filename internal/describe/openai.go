// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package describe

import (
	"context"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/pdiddy/pdfextract/internal/log"
)

// OpenAI describes pages through an OpenAI-compatible chat completions
// endpoint that accepts image inputs.
type OpenAI struct {
	client       openai.Client
	model        string
	maxNewTokens int
}

// NewOpenAI returns a backend for model. baseURL may be empty for the
// OpenAI API; httpClient may be nil.
func NewOpenAI(apiKey, baseURL, model string, maxNewTokens, maxRetries int, httpClient *http.Client) *OpenAI {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	if maxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(maxRetries))
	}
	if maxNewTokens <= 0 {
		maxNewTokens = DefaultMaxNewTokens
	}
	return &OpenAI{client: openai.NewClient(opts...), model: model, maxNewTokens: maxNewTokens}
}

// Describe implements Describer. A response without choices is logged and
// yields Placeholder.
func (o *OpenAI) Describe(ctx context.Context, jpeg []byte, question string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfArrayOfContentParts: []openai.ChatCompletionContentPartUnionParam{
						{OfImageURL: &openai.ChatCompletionContentPartImageParam{
							ImageURL: openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL(jpeg)},
						}},
						{OfText: &openai.ChatCompletionContentPartTextParam{Text: question}},
					},
				},
			},
		}},
		MaxCompletionTokens: openai.Int(int64(o.maxNewTokens)),
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		log.Warnf("chat completion for %s returned no choices", o.model)
		return Placeholder, nil
	}
	return resp.Choices[0].Message.Content, nil
}
