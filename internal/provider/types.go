package provider

// Type tags a backend family. It is the key the manager uses for its
// provider table and the value users put in settings.
type Type string

const (
	TypeOpenAI     Type = "openai"
	TypeOpenRouter Type = "openrouter"
	TypeOllama     Type = "ollama"
)

// KnownTypes lists every backend in display order.
func KnownTypes() []Type {
	return []Type{TypeOpenAI, TypeOpenRouter, TypeOllama}
}

// ParseType maps a settings string to a Type.
func ParseType(s string) (Type, bool) {
	for _, t := range KnownTypes() {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Config describes one backend instance. Values are built fresh from settings
// and never mutated after a provider is constructed.
type Config struct {
	Name              string
	BaseURL           string
	APIKey            string
	DefaultModel      string
	Models            []string
	RequiresAuth      bool
	IsLocal           bool
	MaxTokens         int
	SupportsStreaming bool
	Headers           map[string]string
	// RequestsPerMinute paces outbound calls; zero disables pacing.
	RequestsPerMinute int
}

// Role values accepted in a Message.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a single chat completion call. Temperature and MaxTokens are
// optional.
type ChatRequest struct {
	Model       string
	Messages    []Message
	Temperature *float64
	MaxTokens   *int
}

// Usage is token accounting reported by a backend.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse carries the trimmed completion text and the model that
// actually served it.
type ChatResponse struct {
	Content      string
	Model        string
	Usage        *Usage
	FinishReason string
}

// ValidationResult lists every problem found, not just the first.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

func newValidationResult(errs []string) ValidationResult {
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// Float64 returns a pointer to v, for optional request fields.
func Float64(v float64) *float64 { return &v }

// Int returns a pointer to v, for optional request fields.
func Int(v int) *int { return &v }
