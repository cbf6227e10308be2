package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/core/domain"
	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/core/ports"
)

const defaultMaxResults = 5

type Client struct {
	baseURL     string
	model       string
	maxResults  int
	credentials ports.CredentialStore
	httpClient  *http.Client
}

func New(baseURL, model string, maxResults int, credentials ports.CredentialStore) *Client {
	return NewWithTimeout(baseURL, model, maxResults, credentials, 60*time.Second)
}

func NewWithTimeout(baseURL, model string, maxResults int, credentials ports.CredentialStore, timeout time.Duration) *Client {
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		maxResults:  maxResults,
		credentials: credentials,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// Recognize sends one image to the vision endpoint and returns the labeled
// concepts in provider rank order, at most maxResults of them. The stored
// credential is read and format-checked before any network use.
func (c *Client) Recognize(ctx context.Context, image []byte, mimeType string) ([]domain.RecognitionResult, error) {
	credential, err := c.credentials.Get()
	if err != nil {
		return nil, domain.WrapError(domain.ErrCredentialMissing, "read credential", err)
	}
	if credential == "" {
		return nil, domain.WrapError(domain.ErrCredentialMissing, "recognize image", errors.New("no credential configured"))
	}
	if !domain.ValidCredentialFormat(credential) {
		return nil, domain.WrapError(domain.ErrCredentialInvalid, "recognize image",
			errors.New(`credential does not match the expected "sk-" or "sk-proj-" format`))
	}

	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	dataURI := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))

	request := map[string]any{
		"model": c.model,
		"messages": []map[string]any{
			{
				"role": "system",
				"content": []map[string]any{
					{"type": "text", "text": systemInstruction},
				},
			},
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "image_url", "image_url": map[string]any{"url": dataURI}},
				},
			},
		},
		"max_tokens":  150,
		"temperature": 0.2,
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := c.postJSON(ctx, credential, "/v1/chat/completions", request, &response, "recognize"); err != nil {
		return nil, err
	}
	if len(response.Choices) == 0 {
		return nil, domain.WrapError(domain.ErrMalformedResponse, "recognize image", errors.New("reply contains no choices"))
	}

	return c.parseResults(response.Choices[0].Message.Content)
}

// parseResults decodes the model's message content. Provider drift is
// absorbed here: fenced output is unfenced, missing labels become
// "Unknown", missing confidence becomes 0.5.
func (c *Client) parseResults(content string) ([]domain.RecognitionResult, error) {
	cleaned := stripFences(content)

	var raw []struct {
		Label      string   `json:"label"`
		Confidence *float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, domain.WrapError(domain.ErrMalformedResponse, "parse recognition reply", err)
	}

	if len(raw) > c.maxResults {
		raw = raw[:c.maxResults]
	}
	results := make([]domain.RecognitionResult, 0, len(raw))
	for _, item := range raw {
		label := item.Label
		if label == "" {
			label = "Unknown"
		}
		confidence := 0.5
		if item.Confidence != nil {
			confidence = *item.Confidence
		}
		results = append(results, domain.RecognitionResult{Label: label, Confidence: confidence})
	}
	return results, nil
}

func stripFences(content string) string {
	cleaned := strings.TrimSpace(content)
	if lower := strings.ToLower(cleaned); strings.HasPrefix(lower, "```json") {
		cleaned = strings.TrimSpace(cleaned[len("```json"):])
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimSpace(cleaned[len("```"):])
	}
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}
