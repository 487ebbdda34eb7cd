package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embeddingServer(t *testing.T, capture *map[string]interface{}, vectors [][]float32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, capture))

		data := make([]map[string]interface{}, len(vectors))
		for i, v := range vectors {
			data[i] = map[string]interface{}{"embedding": v}
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]interface{}{"data": data}))
	}))
}

func TestEmbedTextNormalizesResult(t *testing.T) {
	var captured map[string]interface{}
	srv := embeddingServer(t, &captured, [][]float32{{3, 4}})
	defer srv.Close()

	client := NewOpenAICompatibleClient()
	cfg := EmbeddingConfig{BaseURL: srv.URL, APIKey: "k", Model: "embed-model"}

	vec, err := client.EmbedText(context.Background(), cfg, "some text")
	require.NoError(t, err)
	require.Len(t, vec, 2)
	assert.InDelta(t, 0.6, vec[0], 1e-6)
	assert.InDelta(t, 0.8, vec[1], 1e-6)

	assert.Equal(t, "embed-model", captured["model"])
	assert.Equal(t, "some text", captured["input"])
}

func TestEmbedTextBatchKeepsOrder(t *testing.T) {
	var captured map[string]interface{}
	srv := embeddingServer(t, &captured, [][]float32{{1, 0}, {0, 1}})
	defer srv.Close()

	client := NewOpenAICompatibleClient()
	cfg := EmbeddingConfig{BaseURL: srv.URL, APIKey: "k", Model: "m"}

	vecs, err := client.EmbedTextBatch(context.Background(), cfg, []string{"first", "second"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{1, 0}, vecs[0])
	assert.Equal(t, []float32{0, 1}, vecs[1])
}

func TestEmbedImageSendsDataURL(t *testing.T) {
	var captured map[string]interface{}
	srv := embeddingServer(t, &captured, [][]float32{{0, 1}})
	defer srv.Close()

	client := NewOpenAICompatibleClient()
	cfg := EmbeddingConfig{BaseURL: srv.URL, APIKey: "k", Model: "m"}

	_, err := client.EmbedImage(context.Background(), cfg, []byte{0x89, 0x50, 0x4e, 0x47})
	require.NoError(t, err)

	input := captured["input"].([]interface{})
	require.Len(t, input, 1)
	image := input[0].(map[string]interface{})["image"].(string)
	assert.Contains(t, image, "data:image/png;base64,")
}

func TestEmbedTextRejectsEmptyInput(t *testing.T) {
	client := NewOpenAICompatibleClient()
	_, err := client.EmbedText(context.Background(), EmbeddingConfig{}, "  ")
	require.Error(t, err)
}
