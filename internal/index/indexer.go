package index

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
)

const (
	defaultChunkSize    = 500
	defaultChunkOverlap = 100
	embeddingBatchSize  = 10 // embedding APIs commonly cap batch size
)

var (
	ErrDocumentCorrupt = errors.New("document is corrupt or not a valid pdf")
	ErrDocumentEmpty   = errors.New("document has no extractable content")
)

// Embedder maps text and images into one shared vector space so segments of
// both kinds are comparable against a single text query.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedTextBatch(ctx context.Context, texts []string) ([][]float32, error)
	EmbedImage(ctx context.Context, png []byte) ([]float32, error)
}

// DocumentParser turns raw document bytes into ordered page contents.
type DocumentParser func(data []byte) ([]Page, error)

// Page is the parser-facing view of one document page.
type Page struct {
	Number int
	Text   string
	Images []PageImage
}

// PageImage is one decoded embedded image on a page.
type PageImage struct {
	Index int
	PNG   []byte
}

// Indexer builds a Corpus from raw document bytes: per-page text is split
// into overlapping chunks and embedded, per-page images are stored as PNG
// assets and embedded, and the full segment list becomes one new Corpus.
// The Indexer never mutates an existing corpus; callers swap the result in.
type Indexer struct {
	embedder Embedder
	parse    DocumentParser
}

func NewIndexer(embedder Embedder, parse DocumentParser) *Indexer {
	return &Indexer{embedder: embedder, parse: parse}
}

// Index processes the document and returns a fully built corpus, or an error
// leaving nothing behind. A per-image failure is logged and skipped; a
// document yielding zero segments is ErrDocumentEmpty.
func (ix *Indexer) Index(ctx context.Context, data []byte) (*Corpus, error) {
	pages, err := ix.parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentCorrupt, err)
	}

	corpus := &Corpus{Assets: make(map[string][]byte)}
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := ix.indexPageText(ctx, corpus, page); err != nil {
			return nil, err
		}
		ix.indexPageImages(ctx, corpus, page)
	}

	if corpus.Len() == 0 {
		return nil, ErrDocumentEmpty
	}
	return corpus, nil
}

func (ix *Indexer) indexPageText(ctx context.Context, corpus *Corpus, page Page) error {
	text := strings.TrimSpace(page.Text)
	if text == "" {
		return nil
	}

	chunks := chunkText(text, defaultChunkSize, defaultChunkOverlap)
	for start := 0; start < len(chunks); start += embeddingBatchSize {
		end := start + embeddingBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		embeddings, err := ix.embedder.EmbedTextBatch(ctx, batch)
		if err != nil {
			return fmt.Errorf("embed text chunks on page %d failed: %w", page.Number, err)
		}
		if len(embeddings) != len(batch) {
			return fmt.Errorf("embedding count mismatch on page %d: got %d for %d chunks", page.Number, len(embeddings), len(batch))
		}
		for i, chunk := range batch {
			corpus.Segments = append(corpus.Segments, Segment{
				ID:      fmt.Sprintf("page_%d_chunk_%d", page.Number, start+i),
				Kind:    KindText,
				Content: chunk,
				Page:    page.Number,
			})
			corpus.Embeddings = append(corpus.Embeddings, embeddings[i])
		}
	}
	return nil
}

func (ix *Indexer) indexPageImages(ctx context.Context, corpus *Corpus, page Page) {
	for _, img := range page.Images {
		assetID := fmt.Sprintf("page_%d_img_%d", page.Number, img.Index)
		embedding, err := ix.embedder.EmbedImage(ctx, img.PNG)
		if err != nil {
			log.Printf("embed image %s failed, skipping: %v", assetID, err)
			continue
		}
		corpus.Assets[assetID] = img.PNG
		corpus.Segments = append(corpus.Segments, Segment{
			ID:      assetID,
			Kind:    KindImage,
			Content: assetID,
			Page:    page.Number,
		})
		corpus.Embeddings = append(corpus.Embeddings, embedding)
	}
}

// chunkText splits text into overlapping chunks by rune count so no salient
// passage is truncated at a chunk boundary.
func chunkText(text string, size, overlap int) []string {
	if size <= 0 {
		size = defaultChunkSize
	}
	if overlap >= size {
		overlap = size / 2
	}
	var chunks []string
	runes := []rune(text)
	for i := 0; i < len(runes); {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
		if end == len(runes) {
			break
		}
		i += size - overlap
	}
	return chunks
}
