// Package genclient calls the Gemini image generation API. Exactly one
// attempt is made per call; there is no retry or backoff.
package genclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	geminiDefaultBaseURL = "https://generativelanguage.googleapis.com"
	geminiModel          = "gemini-2.5-flash-image"
	geminiAspectRatio    = "4:3"
	geminiTimeout        = 90 * time.Second
)

// Image is a generated illustration payload.
type Image struct {
	Payload  []byte
	MimeType string
}

// Generator produces an illustration for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*Image, error)
}

// GeminiClient implements Generator against the Gemini REST API.
type GeminiClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// GeminiOption configures a GeminiClient.
type GeminiOption func(*GeminiClient)

// WithBaseURL overrides the API endpoint, used by tests.
func WithBaseURL(url string) GeminiOption {
	return func(c *GeminiClient) {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
}

// NewGeminiClient creates a Gemini image generation client. An empty API
// key is allowed at construction; Generate then fails with
// ErrMissingAPIKey so a misconfigured deployment degrades to menus
// without illustrations instead of refusing to start.
func NewGeminiClient(apiKey string, opts ...GeminiOption) *GeminiClient {
	c := &GeminiClient{
		apiKey:  apiKey,
		baseURL: geminiDefaultBaseURL,
		client: &http.Client{
			Timeout: geminiTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BuildPrompt crafts the generation prompt for a meal title. The prompt
// constrains the output to food only and tells the model to ignore any
// personal names embedded in the title ("Matt's Smoked Ribs" should not
// produce a Matt).
func BuildPrompt(title string) string {
	return fmt.Sprintf(
		"A warm, stylized flat illustration of the following meal: %q. "+
			"Show only the food, plated appetizingly on a simple background. "+
			"No people, no text, no logos. If the meal name contains a "+
			"personal name, ignore the name entirely and illustrate only "+
			"the dish itself.",
		title,
	)
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseModalities []string    `json:"responseModalities"`
	ImageConfig        imageConfig `json:"imageConfig"`
}

type imageConfig struct {
	AspectRatio string `json:"aspectRatio"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Generate requests one illustration for the prompt. Non-success HTTP
// statuses surface as *ExternalServiceError; a success response without
// an inline image part surfaces as ErrMalformedResponse.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (*Image, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	reqBody := generateRequest{
		Contents: []content{
			{Parts: []part{{Text: prompt}}},
		},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"Image"},
			ImageConfig:        imageConfig{AspectRatio: geminiAspectRatio},
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, geminiModel)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ExternalServiceError{Status: resp.StatusCode, Body: string(respBody)}
	}

	return extractImage(respBody)
}

// extractImage finds the first inline part carrying an image MIME type.
func extractImage(body []byte) (*Image, error) {
	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, ErrMalformedResponse
	}

	if len(resp.Candidates) == 0 {
		return nil, ErrMalformedResponse
	}

	for _, p := range resp.Candidates[0].Content.Parts {
		if p.InlineData == nil || !strings.HasPrefix(p.InlineData.MimeType, "image/") {
			continue
		}

		payload, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
		if err != nil {
			return nil, ErrMalformedResponse
		}

		return &Image{Payload: payload, MimeType: p.InlineData.MimeType}, nil
	}

	return nil, ErrMalformedResponse
}

// Close cleans up resources
func (c *GeminiClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
