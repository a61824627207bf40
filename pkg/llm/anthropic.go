package llm

import (
	"context"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

// anthropicClient implements Client using the official anthropic-sdk-go.
// The SDK has no JSON response mode; JSONResponse requests are honored by
// the caller's defensive parsing instead.
type anthropicClient struct {
	client sdk.Client
}

// NewAnthropicClient creates a chat client backed by the Anthropic SDK.
func NewAnthropicClient(apiKey string, opts ...option.RequestOption) Client {
	all := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &anthropicClient{
		client: sdk.NewClient(all...),
	}
}

func (c *anthropicClient) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: int64(req.MaxTokens),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.User)),
		},
		Temperature: sdk.Float(req.Temperature),
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	if params.MaxTokens == 0 {
		params.MaxTokens = 1024
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, eris.Wrap(err, "llm: anthropic create message")
	}

	var parts []string
	for _, block := range msg.Content {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}

	return &ChatResponse{
		Text: strings.Join(parts, "\n"),
		Usage: Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}, nil
}
