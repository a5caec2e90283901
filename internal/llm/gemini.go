package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// geminiClient implements the Client interface for the Gemini API.
type geminiClient struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	model          string
	embeddingModel string
	temperature    float64
	maxTokens      int
}

// newGeminiClient creates a new Gemini API client.
func newGeminiClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = "gemini-embedding-001"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	return &geminiClient{
		baseURL:        geminiBaseURL,
		apiKey:         cfg.APIKey,
		model:          model,
		embeddingModel: embeddingModel,
		temperature:    cfg.Temperature,
		maxTokens:      maxTokens,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

// Embed vectorizes a single text.
func (c *geminiClient) Embed(ctx context.Context, text string) ([]float64, error) {
	requestBody := map[string]any{
		"content": geminiContent{Parts: []geminiPart{{Text: text}}},
	}

	body, err := c.post(ctx, fmt.Sprintf("%s/%s:embedContent", c.baseURL, c.embeddingModel), requestBody)
	if err != nil {
		return nil, err
	}

	var response struct {
		Embedding struct {
			Values []float64 `json:"values"`
		} `json:"embedding"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse embedding response: %w", err)
	}
	if len(response.Embedding.Values) == 0 {
		return nil, fmt.Errorf("empty embedding returned")
	}

	return response.Embedding.Values, nil
}

// EmbedBatch vectorizes several texts in one request.
func (c *geminiClient) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	requests := make([]map[string]any, len(texts))
	for i, text := range texts {
		requests[i] = map[string]any{
			"model":   "models/" + c.embeddingModel,
			"content": geminiContent{Parts: []geminiPart{{Text: text}}},
		}
	}

	body, err := c.post(ctx, fmt.Sprintf("%s/%s:batchEmbedContents", c.baseURL, c.embeddingModel), map[string]any{
		"requests": requests,
	})
	if err != nil {
		return nil, err
	}

	var response struct {
		Embeddings []struct {
			Values []float64 `json:"values"`
		} `json:"embeddings"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse batch embedding response: %w", err)
	}
	if len(response.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(response.Embeddings))
	}

	vectors := make([][]float64, len(response.Embeddings))
	for i, e := range response.Embeddings {
		vectors[i] = e.Values
	}
	return vectors, nil
}

// Generate produces text for a prompt.
func (c *geminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	requestBody := map[string]any{
		"contents": []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		"generationConfig": map[string]any{
			"temperature":     c.temperature,
			"maxOutputTokens": c.maxTokens,
		},
	}

	body, err := c.post(ctx, fmt.Sprintf("%s/%s:generateContent", c.baseURL, c.model), requestBody)
	if err != nil {
		return "", err
	}

	var response struct {
		Candidates []struct {
			Content geminiContent `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to parse generation response: %w", err)
	}
	if len(response.Candidates) == 0 || len(response.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no candidates returned")
	}

	return response.Candidates[0].Content.Parts[0].Text, nil
}

// post sends a JSON request and returns the response body, classifying
// non-200 statuses into the provider error taxonomy.
func (c *geminiClient) post(ctx context.Context, url string, requestBody any) ([]byte, error) {
	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(jsonBody)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, string(body))
	}

	return body, nil
}
