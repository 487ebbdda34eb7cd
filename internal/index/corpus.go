package index

import "sync/atomic"

type SegmentKind string

const (
	KindText  SegmentKind = "text"
	KindImage SegmentKind = "image"
)

// Segment is one indexed unit of content: a text chunk or one image. For
// image segments Content holds the asset id, never the raw bytes.
type Segment struct {
	ID      string      `json:"id"`
	Kind    SegmentKind `json:"kind"`
	Content string      `json:"content"`
	Page    int         `json:"page"`
}

// Corpus is the full searchable collection for the currently active document.
// Segments and Embeddings are parallel slices (segment[i] ↔ embedding[i]);
// the image asset payloads live out-of-band in Assets, keyed by the ids that
// image segments reference. A Corpus is immutable once built.
type Corpus struct {
	Segments   []Segment
	Embeddings [][]float32
	Assets     map[string][]byte
}

func (c *Corpus) Len() int {
	return len(c.Segments)
}

// Asset returns the stored PNG bytes for an image segment's asset id.
func (c *Corpus) Asset(id string) ([]byte, bool) {
	data, ok := c.Assets[id]
	return data, ok
}

// Store holds the single active Corpus behind an atomic pointer. Only
// ingestion replaces it, always wholesale; readers see either the fully-old
// or the fully-new corpus, never a mix, without taking a lock.
type Store struct {
	current atomic.Pointer[Corpus]
}

func NewStore() *Store {
	return &Store{}
}

// Current returns the active corpus, or nil when none has been ingested.
func (s *Store) Current() *Corpus {
	return s.current.Load()
}

// Swap installs a freshly built corpus as the active one.
func (s *Store) Swap(c *Corpus) {
	s.current.Store(c)
}

// Reset clears the corpus and its image assets in one step.
func (s *Store) Reset() {
	s.current.Store(nil)
}

// Ready reports whether a document has been ingested and is searchable.
func (s *Store) Ready() bool {
	return s.current.Load() != nil
}
