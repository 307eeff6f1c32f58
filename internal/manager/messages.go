package manager

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jonathanhorst/obsidian-media-summarizer/internal/provider"
	"github.com/jonathanhorst/obsidian-media-summarizer/internal/provider/ollama"
)

// ErrorPrefix starts every user-facing failure string.
const ErrorPrefix = "Error: "

const unknownProvider = "the provider"

// ErrNotConfigured marks a request to a provider that was not built, usually
// because its API key is missing.
var ErrNotConfigured = errors.New("provider not configured")

// IsErrorMessage reports whether s is a failure string from UserMessage.
func IsErrorMessage(s string) bool {
	return strings.HasPrefix(s, ErrorPrefix)
}

// UserMessage turns err into a one-line "Error: ..." string with guidance
// for the user. Typed errors are matched first; otherwise status codes in the
// message text pick the guidance.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	name := unknownProvider
	var pe *provider.Error
	if errors.As(err, &pe) && pe.Provider != "" {
		name = pe.Provider
	}

	switch {
	case errors.Is(err, ErrNotConfigured):
		return ErrorPrefix + fmt.Sprintf("%s is not configured. Add an API key in settings or choose another provider.", name)
	case errors.Is(err, ollama.ErrNoModelsInstalled):
		return ErrorPrefix + "No models installed in Ollama. Pull one with `ollama pull " + ollama.DefaultModel + "` and try again."
	case errors.Is(err, provider.ErrServiceNotRunning):
		return ErrorPrefix + "Ollama service is not running. Start it with `ollama serve` and try again."
	case errors.Is(err, provider.KindTimeout):
		return ErrorPrefix + fmt.Sprintf("The request to %s timed out. Try again or use a shorter transcript.", name)
	case errors.Is(err, provider.KindConfiguration):
		return ErrorPrefix + fmt.Sprintf("Check your %s settings: %s", name, detail(err, pe))
	case errors.Is(err, provider.KindValidation):
		return ErrorPrefix + detail(err, pe)
	}

	if pe != nil && pe.Kind == provider.KindUpstreamPolicy {
		switch pe.Reason {
		case provider.ReasonAuth:
			return authMessage(name)
		case provider.ReasonRateLimit:
			return rateLimitMessage(name)
		case provider.ReasonQuota:
			return quotaMessage(name)
		}
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "401"), strings.Contains(lower, "unauthorized"), strings.Contains(lower, "invalid api key"):
		return authMessage(name)
	case strings.Contains(msg, "429"), strings.Contains(lower, "rate limit"):
		return rateLimitMessage(name)
	case strings.Contains(msg, "402"), strings.Contains(lower, "quota"), strings.Contains(lower, "billing"):
		return quotaMessage(name)
	case strings.Contains(lower, "not running"), strings.Contains(lower, "connection refused"):
		return ErrorPrefix + fmt.Sprintf("Could not reach %s. Check that the service is running and the base URL is correct.", name)
	}

	if errors.Is(err, provider.KindProtocol) {
		return ErrorPrefix + fmt.Sprintf("%s returned an unexpected response: %s", name, detail(err, pe))
	}
	return ErrorPrefix + msg
}

func authMessage(name string) string {
	if name == unknownProvider {
		return ErrorPrefix + "Invalid API key. Check your API key in settings."
	}
	return ErrorPrefix + fmt.Sprintf("Invalid API key. Check your %s API key in settings.", name)
}

func rateLimitMessage(name string) string {
	return ErrorPrefix + fmt.Sprintf("Rate limit exceeded for %s. Wait a moment and try again.", name)
}

func quotaMessage(name string) string {
	return ErrorPrefix + fmt.Sprintf("Quota or credits exhausted for %s. Check your billing details.", name)
}

// detail is the error text without the provider prefix.
func detail(err error, pe *provider.Error) string {
	if pe != nil {
		return pe.Message
	}
	return err.Error()
}
