package ai

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

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ContentPart is one element of a multimodal user message. Exactly one of
// Text or ImagePNG is set.
type ContentPart struct {
	Text     string
	ImagePNG []byte
}

func TextPart(text string) ContentPart {
	return ContentPart{Text: text}
}

func ImagePart(png []byte) ContentPart {
	return ContentPart{ImagePNG: png}
}

func (p ContentPart) IsImage() bool {
	return len(p.ImagePNG) > 0
}

type ChatConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

type OpenAICompatibleClient struct {
	httpClient *http.Client
}

func NewOpenAICompatibleClient() *OpenAICompatibleClient {
	return &OpenAICompatibleClient{
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
}

func (c *OpenAICompatibleClient) Complete(ctx context.Context, cfg ChatConfig, messages []ChatMessage) (string, error) {
	reqBody := map[string]interface{}{
		"model":    cfg.Model,
		"messages": messages,
		"stream":   false,
	}
	return c.postChat(ctx, cfg, reqBody)
}

// CompleteMultimodal sends a single user message whose content mixes text and
// image parts, using the OpenAI vision content-array format. Image parts are
// attached as base64 PNG data URLs.
func (c *OpenAICompatibleClient) CompleteMultimodal(ctx context.Context, cfg ChatConfig, parts []ContentPart) (string, error) {
	if len(parts) == 0 {
		return "", fmt.Errorf("no content parts for multimodal request")
	}

	content := make([]map[string]interface{}, 0, len(parts))
	for _, p := range parts {
		if p.IsImage() {
			content = append(content, map[string]interface{}{
				"type": "image_url",
				"image_url": map[string]string{
					"url": "data:image/png;base64," + base64.StdEncoding.EncodeToString(p.ImagePNG),
				},
			})
		} else {
			content = append(content, map[string]interface{}{
				"type": "text",
				"text": p.Text,
			})
		}
	}

	reqBody := map[string]interface{}{
		"model": cfg.Model,
		"messages": []map[string]interface{}{
			{"role": "user", "content": content},
		},
		"stream": false,
	}
	return c.postChat(ctx, cfg, reqBody)
}

func (c *OpenAICompatibleClient) postChat(ctx context.Context, cfg ChatConfig, reqBody map[string]interface{}) (string, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal llm request failed: %w", err)
	}

	url := strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("build llm request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read llm response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("llm response status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse llm json failed: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty llm choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
