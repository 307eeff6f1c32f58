package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

// CompatRequest is the OpenAI-style chat completions body shared by the
// keyed cloud backends.
type CompatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
	// Models and Route ask a routing backend to fall back across vendors.
	Models []string `json:"models,omitempty"`
	Route  string   `json:"route,omitempty"`
}

// NewCompatRequest copies req into the wire shape.
func NewCompatRequest(req *ChatRequest) CompatRequest {
	return CompatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
}

type compatChoice struct {
	Message      Message `json:"message"`
	Text         string  `json:"text"`
	FinishReason string  `json:"finish_reason"`
}

type compatError struct {
	Message string          `json:"message"`
	Code    json.RawMessage `json:"code"`
}

type compatResponse struct {
	Model   string         `json:"model"`
	Choices []compatChoice `json:"choices"`
	Usage   *Usage         `json:"usage"`
	Error   *compatError   `json:"error"`
}

type compatModel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type compatModelList struct {
	Data []compatModel `json:"data"`
}

// Compat talks the OpenAI chat completions dialect over a Doer.
type Compat struct {
	name string
	cfg  Config
	doer Doer
	log  logrus.FieldLogger
}

// NewCompat builds a client for cfg. A nil log uses the standard logger.
func NewCompat(name string, cfg Config, doer Doer, log logrus.FieldLogger) *Compat {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Compat{name: name, cfg: cfg, doer: doer, log: log}
}

// Endpoint joins path onto the configured base URL.
func (c *Compat) Endpoint(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + path
}

// Headers returns the bearer token (when auth is on) plus any configured
// extra headers.
func (c *Compat) Headers() map[string]string {
	h := make(map[string]string, len(c.cfg.Headers)+1)
	for k, v := range c.cfg.Headers {
		h[k] = v
	}
	if c.cfg.APIKey != "" {
		h["Authorization"] = "Bearer " + c.cfg.APIKey
	}
	return h
}

// Complete posts body to /chat/completions and parses the first choice.
func (c *Compat) Complete(ctx context.Context, body CompatRequest) (*ChatResponse, error) {
	c.log.WithFields(logrus.Fields{
		"provider": c.name,
		"model":    body.Model,
		"messages": len(body.Messages),
	}).Debug("sending chat completion")

	resp, err := c.doer.Do(ctx, http.MethodPost, c.Endpoint("/chat/completions"), c.Headers(), body)
	if err != nil {
		return nil, RequestError(c.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, StatusError(c.name, resp.StatusCode, resp.Text)
	}
	return ParseCompatResponse(c.name, resp)
}

// ParseCompatResponse turns a 200 response into a ChatResponse. An error
// object inside a 200 body is classified by its numeric code when present.
func ParseCompatResponse(name string, resp *HTTPResponse) (*ChatResponse, error) {
	var parsed compatResponse
	if err := resp.DecodeJSON(&parsed); err != nil {
		return nil, NewProtocolError(name, "failed to parse response: "+err.Error())
	}

	if parsed.Error != nil {
		var code int
		if err := json.Unmarshal(parsed.Error.Code, &code); err == nil && code >= 400 {
			return nil, StatusError(name, code, parsed.Error.Message)
		}
		return nil, NewProtocolError(name, "API error: "+parsed.Error.Message)
	}

	if len(parsed.Choices) == 0 {
		return nil, NewProtocolError(name, "API returned no choices")
	}

	choice := parsed.Choices[0]
	content := choice.Message.Content
	if content == "" {
		content = choice.Text
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, NewProtocolError(name, "API returned an empty completion")
	}

	return &ChatResponse{
		Content:      content,
		Model:        parsed.Model,
		Usage:        parsed.Usage,
		FinishReason: choice.FinishReason,
	}, nil
}

// ListModels fetches model ids from /models. Both {"data": [...]} and a bare
// array are accepted.
func (c *Compat) ListModels(ctx context.Context) ([]string, error) {
	resp, err := c.doer.Do(ctx, http.MethodGet, c.Endpoint("/models"), c.Headers(), nil)
	if err != nil {
		return nil, RequestError(c.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, StatusError(c.name, resp.StatusCode, resp.Text)
	}

	var entries []compatModel
	var list compatModelList
	if err := resp.DecodeJSON(&list); err == nil && list.Data != nil {
		entries = list.Data
	} else if err := resp.DecodeJSON(&entries); err != nil {
		return nil, NewProtocolError(c.name, "failed to parse models response")
	}

	ids := make([]string, 0, len(entries))
	for _, m := range entries {
		id := m.ID
		if id == "" {
			id = m.Name
		}
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
