// Package anthropic implements the classification and response oracles on
// top of the Anthropic Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/caseflow-io/caseflow/core"
	"github.com/caseflow-io/caseflow/oracle"
)

// Options configure the Anthropic oracle adapter.
type Options struct {
	APIKey      string
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	Intents     []string
}

// Oracle wraps the Anthropic API behind the oracle.Classifier and
// oracle.Responder interfaces.
type Oracle struct {
	client *anthropic.Client
	opts   Options
}

// New creates an Anthropic oracle. Without an explicit API key the SDK
// reads one from the environment.
func New(optFns ...func(o *Options)) *Oracle {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)
	return &Oracle{client: &client, opts: opts}
}

// NewFromClient creates an Anthropic oracle from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Oracle {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Oracle{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.0,
		MaxTokens:   1024,
		Intents:     oracle.DefaultIntents(),
	}
}

// Classify implements oracle.Classifier.
func (o *Oracle) Classify(ctx context.Context, message string, facts map[string]any) (*oracle.Classification, error) {
	text, err := o.complete(ctx, oracle.ClassifyPrompt(o.opts.Intents, facts), message)
	if err != nil {
		return nil, err
	}
	var result oracle.Classification
	if err := json.Unmarshal([]byte(stripFences(text)), &result); err != nil {
		return nil, fmt.Errorf("anthropic: malformed classification: %w", err)
	}
	return &result, nil
}

// Respond implements oracle.Responder.
func (o *Oracle) Respond(ctx context.Context, req oracle.ResponseRequest) (string, error) {
	text, err := o.complete(ctx, oracle.RespondPrompt(req), lastCustomerMessage(req))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (o *Oracle) complete(ctx context.Context, system, user string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       o.opts.Model,
		MaxTokens:   o.opts.MaxTokens,
		Temperature: anthropic.Float(o.opts.Temperature),
		System:      []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	}
	resp, err := o.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}
	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.AsText().Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("anthropic: empty completion")
	}
	return b.String(), nil
}

func lastCustomerMessage(req oracle.ResponseRequest) string {
	for i := len(req.History) - 1; i >= 0; i-- {
		if req.History[i].Role == core.RoleCustomer {
			return req.History[i].Text
		}
	}
	return ""
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

var (
	_ oracle.Classifier = (*Oracle)(nil)
	_ oracle.Responder  = (*Oracle)(nil)
)
