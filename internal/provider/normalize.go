package provider

// Normalize builds the payload sent to a Client: the system prompt first
// (omitted when empty) followed by history in its original order.
//
// System-role entries inside history are not emitted, so the payload never
// carries more than one system message. Nothing is truncated or merged.
func Normalize(systemPrompt string, history []Message) []Message {
	out := make([]Message, 0, len(history)+1)
	if systemPrompt != "" {
		out = append(out, Message{Role: System, Content: systemPrompt})
	}
	for _, m := range history {
		if m.Role == System {
			continue
		}
		out = append(out, m)
	}
	return out
}
