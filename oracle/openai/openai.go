// Package openai implements the classification and response oracles on top
// of the OpenAI Chat Completions API. Classification asks the model for a
// strict JSON object; responses are plain text.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"

	"github.com/caseflow-io/caseflow/core"
	"github.com/caseflow-io/caseflow/oracle"
)

// Options configure the OpenAI oracle adapter.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	Intents             []string
}

// Oracle wraps the OpenAI API behind the oracle.Classifier and
// oracle.Responder interfaces.
type Oracle struct {
	client *openai.Client
	opts   Options
}

// New creates an OpenAI oracle using the official client. The API key is
// read from the environment by the SDK.
func New(optFns ...func(o *Options)) *Oracle {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates an OpenAI oracle from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Oracle {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.0,
		MaxCompletionTokens: 1024,
		Intents:             oracle.DefaultIntents(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Oracle{client: client, opts: opts}
}

// Classify implements oracle.Classifier.
func (o *Oracle) Classify(ctx context.Context, message string, facts map[string]any) (*oracle.Classification, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(oracle.ClassifyPrompt(o.opts.Intents, facts)),
			openai.UserMessage(message),
		},
		Model:               o.opts.Model,
		Temperature:         openai.Float(o.opts.Temperature),
		MaxCompletionTokens: openai.Int(o.opts.MaxCompletionTokens),
	}
	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: no choices returned")
	}
	var result oracle.Classification
	if err := json.Unmarshal([]byte(stripFences(resp.Choices[0].Message.Content)), &result); err != nil {
		return nil, fmt.Errorf("openai: malformed classification: %w", err)
	}
	return &result, nil
}

// Respond implements oracle.Responder.
func (o *Oracle) Respond(ctx context.Context, req oracle.ResponseRequest) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(oracle.RespondPrompt(req)),
			openai.UserMessage(lastCustomerMessage(req)),
		},
		Model:               o.opts.Model,
		Temperature:         openai.Float(o.opts.Temperature),
		MaxCompletionTokens: openai.Int(o.opts.MaxCompletionTokens),
	}
	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func lastCustomerMessage(req oracle.ResponseRequest) string {
	for i := len(req.History) - 1; i >= 0; i-- {
		if req.History[i].Role == core.RoleCustomer {
			return req.History[i].Text
		}
	}
	return ""
}

// stripFences removes a surrounding markdown code fence if the model
// wrapped its JSON in one.
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
