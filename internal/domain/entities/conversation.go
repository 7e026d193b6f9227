package entities

// FunctionReply is the canonical function name used when wrapping bare text
// replies from the conversational channel.
const FunctionReply = "reply"

// ConversationalMessage is the canonical envelope for conversational traffic.
// Bare strings from the wire are wrapped as {function: "reply",
// parameters: {message}}; already-structured function calls pass through
// unchanged.
type ConversationalMessage struct {
	Function   string         `json:"function"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// NewReply wraps free text into the canonical reply envelope.
func NewReply(message string) *ConversationalMessage {
	return &ConversationalMessage{
		Function:   FunctionReply,
		Parameters: map[string]any{"message": message},
	}
}
