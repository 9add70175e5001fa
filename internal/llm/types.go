package llm

// Role represents the role of a message sender in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DefaultMaxTokens applies when a request leaves MaxTokens at zero.
const DefaultMaxTokens = 1024

// Message represents a single message in a conversation.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest contains the parameters for an LLM completion request.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// CompletionResponse contains the result of an LLM completion request.
// Token counts are zero when the backend does not report them for streams.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}

func (r CompletionRequest) maxTokens() int {
	if r.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return r.MaxTokens
}

func (r CompletionRequest) modelOr(fallback string) string {
	if r.Model == "" {
		return fallback
	}
	return r.Model
}
