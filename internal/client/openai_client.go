package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/coursebuilder/api/internal/config"
	"github.com/coursebuilder/api/internal/model"
)

// OpenAIClient talks to an OpenAI-compatible API: chat completions for
// course composition and audio transcriptions for speech-to-text.
type OpenAIClient struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	chatModel    string
	whisperModel string
}

// ChatMessage represents a message in the chat completion request
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest represents the request body for chat completion
type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// ChatCompletionResponse represents the response from chat completion
type ChatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// TranscriptionResponse represents the response from audio transcription
type TranscriptionResponse struct {
	Text string `json:"text"`
}

// NewOpenAIClient creates a new OpenAI API client
func NewOpenAIClient(cfg *config.OpenAIConfig) *OpenAIClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OpenAIClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
		chatModel:    cfg.ChatModel,
		whisperModel: cfg.WhisperModel,
	}
}

// ChatCompletion sends a chat completion request. An empty system prompt
// sends a user-only message.
func (c *OpenAIClient) ChatCompletion(ctx context.Context, system, user string) (string, error) {
	var messages []ChatMessage
	if system != "" {
		messages = append(messages, ChatMessage{Role: "system", Content: system})
	}
	messages = append(messages, ChatMessage{Role: "user", Content: user})

	reqBody := ChatCompletionRequest{
		Model:       c.chatModel,
		Messages:    messages,
		Temperature: 0.3,
		MaxTokens:   2048,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if err := statusError(resp.StatusCode, respBody); err != nil {
		return "", err
	}

	var chatResp ChatCompletionResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return chatResp.Choices[0].Message.Content, nil
}

// TranscribeFile uploads an audio file to the transcription endpoint and
// returns the recognized text.
func (c *OpenAIClient) TranscribeFile(ctx context.Context, audioPath string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("failed to copy audio data: %w", err)
	}
	if err := mw.WriteField("model", c.whisperModel); err != nil {
		return "", fmt.Errorf("failed to write model field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if err := statusError(resp.StatusCode, respBody); err != nil {
		return "", err
	}

	var trResp TranscriptionResponse
	if err := json.Unmarshal(respBody, &trResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return trResp.Text, nil
}

// statusError maps a non-200 upstream response to an error. 429 and quota
// exhaustion are flagged with model.ErrRateLimited so callers can surface
// them to the user distinctly from generic API failures.
func statusError(status int, body []byte) error {
	if status == http.StatusOK {
		return nil
	}
	if status == http.StatusTooManyRequests || isQuotaError(body) {
		return fmt.Errorf("openai API error (status %d): %s: %w", status, string(body), model.ErrRateLimited)
	}
	return fmt.Errorf("openai API error (status %d): %s", status, string(body))
}

func isQuotaError(body []byte) bool {
	var errResp struct {
		Error struct {
			Code string `json:"code"`
			Type string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil {
		return false
	}
	return errResp.Error.Code == "insufficient_quota" || errResp.Error.Type == "insufficient_quota"
}

// IsConfigured returns true if the client has valid configuration
func (c *OpenAIClient) IsConfigured() bool {
	return c.apiKey != ""
}
