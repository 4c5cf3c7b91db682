package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/picobot/picobot/internal/model"
)

// OpenAIClient completes chats against any OpenAI-compatible API.
type OpenAIClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

type chatRequest struct {
	Model       string              `json:"model"`
	Messages    []model.ChatMessage `json:"messages"`
	Temperature float64             `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewOpenAIClient creates a chat client for an OpenAI-compatible API.
func NewOpenAIClient(baseURL, apiKey string) *OpenAIClient {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, modelName string, messages []model.ChatMessage) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("cannot complete empty conversation")
	}
	body, _ := json.Marshal(chatRequest{Model: modelName, Messages: messages})
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("chat error %d: %s", resp.StatusCode, string(b))
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no completion returned")
	}
	return result.Choices[0].Message.Content, nil
}

// summaryPrompt instructs the model to distill a conversation window
// into durable facts, or reply NOTHING when there are none.
const summaryPrompt = `Summarize the durable facts from this conversation fragment in 1-3 short sentences. Focus on facts about the user, their preferences, and decisions made. If there is nothing worth remembering long-term, reply with exactly: NOTHING`

// ChatSummarizer summarizes conversation windows through a Completer.
type ChatSummarizer struct {
	completer Completer
	model     string
}

// NewChatSummarizer returns a Summarizer backed by the given completer
// and model.
func NewChatSummarizer(completer Completer, modelName string) *ChatSummarizer {
	return &ChatSummarizer{completer: completer, model: modelName}
}

// Summarize condenses the window into a Summary, or nil when the model
// judges nothing worth keeping.
func (s *ChatSummarizer) Summarize(ctx context.Context, window []model.ChatMessage) (*Summary, error) {
	if len(window) == 0 {
		return nil, nil
	}

	var b strings.Builder
	for _, m := range window {
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}

	messages := []model.ChatMessage{
		{Role: model.RoleUser, Content: summaryPrompt + "\n\n" + b.String()},
	}
	reply, err := s.completer.Complete(ctx, s.model, messages)
	if err != nil {
		return nil, fmt.Errorf("summarize window: %w", err)
	}

	reply = strings.TrimSpace(reply)
	if reply == "" || strings.EqualFold(reply, "NOTHING") {
		return nil, nil
	}
	return &Summary{Content: reply, Source: "conversation_summary", Importance: 0.6}, nil
}
