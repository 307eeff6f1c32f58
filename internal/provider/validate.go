package provider

import (
	"fmt"
	"math"
	"net/url"
	"strings"
)

// ValidateConfig checks a Config without doing any I/O.
func ValidateConfig(cfg Config) ValidationResult {
	var errs []string

	if strings.TrimSpace(cfg.BaseURL) == "" {
		errs = append(errs, "Base URL is required")
	} else if u, err := url.Parse(cfg.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("Base URL %q is not a valid URL", cfg.BaseURL))
	}

	if cfg.RequiresAuth && strings.TrimSpace(cfg.APIKey) == "" {
		name := cfg.Name
		if name == "" {
			name = "this provider"
		}
		errs = append(errs, "API key is required for "+name)
	}

	if cfg.MaxTokens < 0 {
		errs = append(errs, "Max tokens cannot be negative")
	}
	if cfg.RequestsPerMinute < 0 {
		errs = append(errs, "Requests per minute cannot be negative")
	}

	return newValidationResult(errs)
}

// ValidateRequest checks ChatRequest invariants without doing any I/O.
func ValidateRequest(req *ChatRequest) ValidationResult {
	if req == nil {
		return newValidationResult([]string{"Request is required"})
	}

	var errs []string
	if strings.TrimSpace(req.Model) == "" {
		errs = append(errs, "Model is required")
	}
	if len(req.Messages) == 0 {
		errs = append(errs, "At least one message is required")
	}
	for i, m := range req.Messages {
		switch m.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			errs = append(errs, fmt.Sprintf("Message %d has invalid role %q", i, m.Role))
		}
		if strings.TrimSpace(m.Content) == "" {
			errs = append(errs, fmt.Sprintf("Message %d content is empty", i))
		}
	}
	if t := req.Temperature; t != nil && (math.IsNaN(*t) || *t < 0 || *t > 2) {
		errs = append(errs, fmt.Sprintf("Temperature must be between 0 and 2, got %g", *req.Temperature))
	}
	if req.MaxTokens != nil && *req.MaxTokens <= 0 {
		errs = append(errs, fmt.Sprintf("Max tokens must be a positive integer, got %d", *req.MaxTokens))
	}

	return newValidationResult(errs)
}
