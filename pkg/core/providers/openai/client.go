package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/vango-go/vocaiyze/pkg/core"
)

// doRequest sends a non-streaming request to the chat completions endpoint.
func (p *Provider) doRequest(ctx context.Context, req *chatRequest) ([]byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.chatCompletionsURL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	p.setHeaders(httpReq)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, core.NewServiceUnavailableError(p.name, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, core.FromHTTPStatus(p.name, resp.StatusCode, resp.Header, errorMessage(respBody))
	}
	return respBody, nil
}

// setHeaders sets the required API headers.
func (p *Provider) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")

	headerValue := p.auth.Value
	if headerValue == "" {
		headerValue = p.auth.Prefix + p.apiKey
	}
	authHeader := p.auth.Header
	if authHeader == "" {
		authHeader = "Authorization"
	}
	req.Header.Set(authHeader, headerValue)

	for key, value := range p.extraHeaders {
		req.Header.Set(key, value)
	}
}

func (p *Provider) chatCompletionsURL() string {
	return strings.TrimRight(p.baseURL, "/") + p.chatCompletionsPath
}

// errorMessage extracts error.message from an OpenAI-style error body,
// falling back to the raw body.
func errorMessage(body []byte) []byte {
	var env struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Message != "" {
		return []byte(env.Error.Message)
	}
	return bytes.TrimSpace(body)
}
