package ai

import "context"

// EmbeddingService binds the shared client to one embedding endpoint so
// callers depend on a configuration-free surface.
type EmbeddingService struct {
	client *OpenAICompatibleClient
	cfg    EmbeddingConfig
}

func NewEmbeddingService(client *OpenAICompatibleClient, cfg EmbeddingConfig) *EmbeddingService {
	return &EmbeddingService{client: client, cfg: cfg}
}

func (s *EmbeddingService) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return s.client.EmbedText(ctx, s.cfg, text)
}

func (s *EmbeddingService) EmbedTextBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return s.client.EmbedTextBatch(ctx, s.cfg, texts)
}

func (s *EmbeddingService) EmbedImage(ctx context.Context, png []byte) ([]float32, error) {
	return s.client.EmbedImage(ctx, s.cfg, png)
}

// CompletionService binds the shared client to one chat model.
type CompletionService struct {
	client *OpenAICompatibleClient
	cfg    ChatConfig
}

func NewCompletionService(client *OpenAICompatibleClient, cfg ChatConfig) *CompletionService {
	return &CompletionService{client: client, cfg: cfg}
}

func (s *CompletionService) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	return s.client.Complete(ctx, s.cfg, messages)
}

func (s *CompletionService) CompleteMultimodal(ctx context.Context, parts []ContentPart) (string, error) {
	return s.client.CompleteMultimodal(ctx, s.cfg, parts)
}
