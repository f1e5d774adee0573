// Package economic collects daily economic index values through a generative-language lookup.
package economic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"colnews/internal/config"
)

// Gemini client errors.
var (
	ErrNoAPIKey   = errors.New("gemini api key not configured")
	ErrEmptyReply = errors.New("gemini reply has no candidate text")
)

// maxReplyBytes bounds the response body read from the API.
const maxReplyBytes = 1 << 20

// Generator produces a text completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

type generatePart struct {
	Text string `json:"text"`
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents         []generateContent `json:"contents"`
	GenerationConfig generationConfig  `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content generateContent `json:"content"`
	} `json:"candidates"`
}

// GeminiClient calls the generateContent endpoint of the configured model.
type GeminiClient struct {
	client *http.Client
	cfg    config.GeminiConfig
}

// NewGeminiClient creates a client using cfg.TimeoutSec as the request timeout.
func NewGeminiClient(cfg config.GeminiConfig) *GeminiClient {
	return &GeminiClient{
		cfg:    cfg,
		client: &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second},
	}
}

// Configured reports whether an API key is present.
func (g *GeminiClient) Configured() bool {
	return g.cfg.APIKey != ""
}

// Generate sends prompt and returns the text of the first candidate.
// maxTokens <= 0 uses the configured limit.
func (g *GeminiClient) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if !g.Configured() {
		return "", ErrNoAPIKey
	}

	if maxTokens <= 0 {
		maxTokens = g.cfg.MaxOutputTokens
	}

	payload, err := json.Marshal(generateRequest{
		Contents: []generateContent{{Parts: []generatePart{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     g.cfg.Temperature,
			MaxOutputTokens: maxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s",
		strings.TrimRight(g.cfg.Endpoint, "/"), g.cfg.Model, url.QueryEscape(g.cfg.APIKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		// url.Error repeats the request URL, which carries the key.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}

		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read gemini reply: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini returned status %d", resp.StatusCode)
	}

	var decoded generateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("failed to decode gemini reply: %w", err)
	}

	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyReply
	}

	return decoded.Candidates[0].Content.Parts[0].Text, nil
}

// Lookup generates a reply to prompt and decodes the JSON object it contains into v.
func (g *GeminiClient) Lookup(ctx context.Context, prompt string, maxTokens int, v any) error {
	return LookupJSON(ctx, g, prompt, maxTokens, v)
}

// LookupJSON is Lookup for any Generator.
func LookupJSON(ctx context.Context, gen Generator, prompt string, maxTokens int, v any) error {
	text, err := gen.Generate(ctx, prompt, maxTokens)
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(ExtractJSON(text)), v); err != nil {
		return fmt.Errorf("reply is not valid JSON: %w", err)
	}

	return nil
}

// ExtractJSON strips a markdown code fence, optionally tagged json, from a model reply.
func ExtractJSON(reply string) string {
	text := strings.TrimSpace(reply)

	if strings.HasPrefix(text, "```") {
		parts := strings.SplitN(text, "```", 3)
		text = parts[1]
		text = strings.TrimPrefix(text, "json")
		text = strings.TrimPrefix(text, "JSON")
	}

	return strings.TrimSpace(text)
}
