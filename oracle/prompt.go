package oracle

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultIntents lists the intent labels the shipped decision tables route.
func DefaultIntents() []string {
	return []string{"WISMO", "REFUND_STANDARD", "WRONG_MISSING", "UNKNOWN"}
}

// ClassifyPrompt builds the system instruction for the classification call.
// The model must answer with a single JSON object; accumulated facts are
// included so follow-up messages resolve against earlier context.
func ClassifyPrompt(intents []string, facts map[string]any) string {
	var b strings.Builder
	b.WriteString("You classify e-commerce support messages.\n")
	b.WriteString("Pick exactly one intent from: ")
	b.WriteString(strings.Join(intents, ", "))
	b.WriteString(".\n")
	b.WriteString("Extract entities such as order_id, tracking_number, refund_reason, ")
	b.WriteString("item_photo, packing_slip, wants_reship when present.\n")
	if len(facts) > 0 {
		known, err := json.Marshal(facts)
		if err == nil {
			fmt.Fprintf(&b, "Known conversation facts: %s\n", known)
		}
	}
	b.WriteString("Answer with only a JSON object: ")
	b.WriteString(`{"intent": string, "confidence": number between 0 and 1, "entities": object, "reasoning": string}`)
	return b.String()
}

// RespondPrompt builds the system instruction for the response call. The
// decision is already made; the model only phrases it.
func RespondPrompt(req ResponseRequest) string {
	var b strings.Builder
	b.WriteString("You are a customer support agent for an e-commerce store.\n")
	b.WriteString("Write one short, warm reply to the customer's last message.\n")
	b.WriteString("The reply must convey exactly the outcome below. Do not promise anything else, ")
	b.WriteString("do not invent order details, and do not mention internal systems.\n")
	if d := req.Decision; d != nil {
		fmt.Fprintf(&b, "Outcome: %s.\n", d.Action)
		if d.ResponseTemplate != "" {
			fmt.Fprintf(&b, "Message to convey: %s\n", d.ResponseTemplate)
		}
		if len(d.ClarifyingQuestions) > 0 {
			fmt.Fprintf(&b, "Ask the customer: %s\n", strings.Join(d.ClarifyingQuestions, " "))
		}
	}
	for _, rec := range req.ToolResults {
		if rec.Success {
			data, err := json.Marshal(rec.Result)
			if err == nil {
				fmt.Fprintf(&b, "Result of %s: %s\n", rec.Tool, data)
			}
			continue
		}
		fmt.Fprintf(&b, "The %s lookup could not be completed; apologize and ask the customer to verify the details they gave.\n", rec.Tool)
	}
	return b.String()
}
