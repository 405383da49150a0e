package oracle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseflow-io/caseflow/core"
	"github.com/caseflow-io/caseflow/policy"
)

func TestStaticClassifierFollowsScript(t *testing.T) {
	c := &StaticClassifier{Script: []Classification{
		{Intent: "WISMO", Confidence: 0.9},
		{Intent: "REFUND_STANDARD", Confidence: 0.8},
	}}

	first, err := c.Classify(context.Background(), "where is my order", nil)
	require.NoError(t, err)
	assert.Equal(t, "WISMO", first.Intent)

	second, err := c.Classify(context.Background(), "actually refund me", nil)
	require.NoError(t, err)
	assert.Equal(t, "REFUND_STANDARD", second.Intent)

	// Past the end of the script the last entry repeats.
	third, err := c.Classify(context.Background(), "anything", nil)
	require.NoError(t, err)
	assert.Equal(t, "REFUND_STANDARD", third.Intent)
}

func TestStaticClassifierError(t *testing.T) {
	c := &StaticClassifier{Err: errors.New("oracle down")}
	_, err := c.Classify(context.Background(), "hello", nil)
	assert.Error(t, err)
}

func TestTemplateResponderRendersTemplate(t *testing.T) {
	r := &TemplateResponder{Templates: DefaultTemplates()}

	text, err := r.Respond(context.Background(), ResponseRequest{
		Decision: &policy.Decision{
			Action:           policy.ActionRespond,
			ResponseTemplate: "wismo_promise_friday",
		},
	})
	require.NoError(t, err)
	assert.Contains(t, text, "Friday")
}

func TestTemplateResponderJoinsClarifyingQuestions(t *testing.T) {
	r := &TemplateResponder{}

	text, err := r.Respond(context.Background(), ResponseRequest{
		Decision: &policy.Decision{
			Action:              policy.ActionAskClarifying,
			ClarifyingQuestions: []string{"What is your order number?", "When did you order?"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "What is your order number? When did you order?", text)
}

func TestTemplateResponderUnknownTemplateFallsBack(t *testing.T) {
	r := &TemplateResponder{Templates: map[string]string{}}

	// An unknown template id is an internal name and must never be echoed
	// to the customer.
	text, err := r.Respond(context.Background(), ResponseRequest{
		Decision: &policy.Decision{
			Action:           policy.ActionRespond,
			ResponseTemplate: "wismo_internal_v2",
		},
	})
	require.NoError(t, err)
	assert.NotContains(t, text, "wismo_internal_v2")
	assert.NotEmpty(t, text)
}

func TestTemplateResponderSpeaksToFailedTool(t *testing.T) {
	r := &TemplateResponder{Templates: DefaultTemplates()}

	text, err := r.Respond(context.Background(), ResponseRequest{
		Decision: &policy.Decision{Action: policy.ActionCallTool},
		ToolResults: []core.ToolCallRecord{
			{Tool: "check_order_status", Success: false, Error: "validation failed for field \"order_id\""},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, text, "double-check")
}
