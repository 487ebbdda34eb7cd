package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
)

// EmbeddingConfig holds API settings for the multimodal embedding endpoint
// (OpenAI-compatible). The model must place text and image inputs in one
// shared vector space so a text query can rank image segments.
type EmbeddingConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// EmbedText returns the L2-normalized embedding vector for the given text.
func (c *OpenAICompatibleClient) EmbedText(ctx context.Context, cfg EmbeddingConfig, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("embedding input is empty")
	}

	reqBody := map[string]interface{}{
		"model": cfg.Model,
		"input": text,
	}
	vectors, err := c.postEmbeddings(ctx, cfg, reqBody)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTextBatch returns normalized embeddings for multiple texts, in input order.
func (c *OpenAICompatibleClient) EmbedTextBatch(ctx context.Context, cfg EmbeddingConfig, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	trimmed := make([]string, 0, len(texts))
	for _, t := range texts {
		if s := strings.TrimSpace(t); s != "" {
			trimmed = append(trimmed, s)
		}
	}
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("no non-empty texts for embedding")
	}

	reqBody := map[string]interface{}{
		"model": cfg.Model,
		"input": trimmed,
	}
	return c.postEmbeddings(ctx, cfg, reqBody)
}

// EmbedImage returns the normalized embedding vector for PNG image bytes,
// passed as a base64 data URL input element.
func (c *OpenAICompatibleClient) EmbedImage(ctx context.Context, cfg EmbeddingConfig, png []byte) ([]float32, error) {
	if len(png) == 0 {
		return nil, fmt.Errorf("embedding image is empty")
	}

	reqBody := map[string]interface{}{
		"model": cfg.Model,
		"input": []map[string]string{
			{"image": "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)},
		},
	}
	vectors, err := c.postEmbeddings(ctx, cfg, reqBody)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *OpenAICompatibleClient) postEmbeddings(ctx context.Context, cfg EmbeddingConfig, reqBody map[string]interface{}) ([][]float32, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request failed: %w", err)
	}

	url := strings.TrimRight(cfg.BaseURL, "/") + "/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build embedding request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	client := c.httpClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("embedding response status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse embedding json failed: %w", err)
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding in response")
	}

	result := make([][]float32, len(parsed.Data))
	for i := range parsed.Data {
		result[i] = Normalize(parsed.Data[i].Embedding)
	}
	return result, nil
}

// Normalize scales the vector to unit length so cosine similarity reduces to
// a dot product. Zero vectors are returned unchanged.
func Normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	norm := float32(math.Sqrt(sum))
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = v / norm
	}
	return out
}
