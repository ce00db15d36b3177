package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/amanahealth/clinic-concierge/pkg/logging"
)

const classifierSystemPrompt = "You are the language-understanding component of a medical clinic assistant. " +
	"You classify patient messages into intents and extract entities. " +
	"Respond only with the requested JSON object."

const classifierInstructions = `Classify the patient message into exactly one of these intents:
- search_physicians: the patient wants to find a doctor (by specialty, price, language)
- check_availability: the patient wants free appointment times for a doctor
- book_appointment: the patient wants to book an appointment
- cancel_appointment: the patient wants to cancel an existing appointment
- verify_insurance: the patient wants their insurance coverage checked
- create_payment: the patient wants to pay for an appointment
- confirm: the patient is agreeing to something just proposed
- cancel: the patient is declining or abandoning the current request
- smalltalk: greeting or chit-chat
- unknown: none of the above

Extract any of these entities when present: specialty, date, start_time,
physician_id, emirates_id, appointment_id, language, max_price, phone.

Respond in JSON:
{"intent": "...", "confidence": 0.0-1.0, "entities": {"name": "value"}}`

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClassifier implements Classifier against the OpenAI chat API using
// JSON-mode responses.
type OpenAIClassifier struct {
	client chatCompleter
	model  string
	logger *logging.Logger
}

// NewOpenAIClassifier builds a classifier around an OpenAI client.
func NewOpenAIClassifier(client *openai.Client, model string, logger *logging.Logger) *OpenAIClassifier {
	if client == nil {
		panic("intent: openai client cannot be nil")
	}
	if model == "" {
		model = openai.GPT4o
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &OpenAIClassifier{client: client, model: model, logger: logger}
}

// newOpenAIClassifierWithCompleter is the test seam.
func newOpenAIClassifierWithCompleter(client chatCompleter, model string, logger *logging.Logger) *OpenAIClassifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &OpenAIClassifier{client: client, model: model, logger: logger}
}

// Classify sends the message, the recent history window, and the pending
// intent to the model and decodes its JSON classification.
func (c *OpenAIClassifier) Classify(ctx context.Context, text string, window []ContextTurn, pending *Intent) (Classification, error) {
	var prompt strings.Builder
	prompt.WriteString(classifierInstructions)

	if len(window) > 0 {
		prompt.WriteString("\n\nRecent conversation:\n")
		for _, turn := range window {
			fmt.Fprintf(&prompt, "%s: %s\n", turn.Role, turn.Text)
		}
	}
	if pending != nil && pending.Kind != KindUnknown {
		fmt.Fprintf(&prompt, "\nThe conversation has a pending %s request with slots %s. "+
			"The message may be supplying one of its missing values.\n", pending.Kind, formatSlots(pending.Slots))
	}
	fmt.Fprintf(&prompt, "\nPatient message: %q", text)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: classifierSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt.String()},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0,
	})
	if err != nil {
		return Classification{}, fmt.Errorf("intent: openai request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Classification{}, fmt.Errorf("intent: openai returned no choices")
	}

	var out Classification
	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return Classification{}, fmt.Errorf("intent: decode classification: %w", err)
	}

	c.logger.Debug("classified message", "intent", out.Intent, "confidence", out.Confidence)
	return out, nil
}

func formatSlots(slots map[string]string) string {
	if len(slots) == 0 {
		return "{}"
	}
	data, err := json.Marshal(slots)
	if err != nil {
		return "{}"
	}
	return string(data)
}
