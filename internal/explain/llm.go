package explain

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"loggedin/internal/types"
)

// LLMExplainer uses a local LLM (e.g., Ollama) to generate explanations
type LLMExplainer struct {
	url    string
	model  string
	client *http.Client
}

func NewLLMExplainer(url, model string) *LLMExplainer {
	if url == "" {
		url = "http://localhost:11434/api/generate"
	}
	if model == "" {
		model = "tinyllama" // Default lightweight model
	}
	return &LLMExplainer{
		url:   url,
		model: model,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// OllamaRequest represents the payload for Ollama
type OllamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// OllamaResponse represents the response from Ollama
type OllamaResponse struct {
	Response string `json:"response"`
}

func (e *LLMExplainer) Explain(ctx context.Context, a types.Alert) (string, error) {
	reqBody := OllamaRequest{
		Model:  e.model,
		Prompt: e.buildPrompt(a),
		Stream: false,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal llm request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to build llm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm connection failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm returned status: %s", resp.Status)
	}

	var llmResp OllamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&llmResp); err != nil {
		return "", fmt.Errorf("failed to decode llm response: %w", err)
	}
	return strings.TrimSpace(llmResp.Response), nil
}

func (e *LLMExplainer) buildPrompt(a types.Alert) string {
	return fmt.Sprintf(`You are a security analyst. Explain the risk of this Windows authentication alert in 1 sentence.
Alert: %s
Kind: %s
Risk: %s
Reason: %s
Explanation:`, a.Summary(), a.Kind, a.Risk, a.Reason)
}
