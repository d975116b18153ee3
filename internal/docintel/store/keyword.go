package store

import (
	"math"
	"sort"
	"sync"

	"github.com/kart-io/docintel/internal/model"
	"github.com/kart-io/docintel/internal/pkg/textutil"
)

// BM25 parameters; the usual defaults.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

type keywordDoc struct {
	chunkID    string
	documentID string
	length     int
	terms      map[string]int
}

// BM25Index is an in-memory inverted index over chunk text. It is rebuilt
// from the durable store at startup alongside the vector index.
type BM25Index struct {
	mu       sync.RWMutex
	docs     map[string]*keywordDoc    // chunkID -> doc
	postings map[string]map[string]int // term -> chunkID -> tf
	totalLen int
}

var _ KeywordIndex = (*BM25Index)(nil)

// NewBM25Index creates an empty keyword index.
func NewBM25Index() *BM25Index {
	return &BM25Index{
		docs:     make(map[string]*keywordDoc),
		postings: make(map[string]map[string]int),
	}
}

// Add indexes chunk texts.
func (b *BM25Index) Add(chunks []model.Chunk) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, chunk := range chunks {
		tokens := textutil.Tokenize(chunk.Text)
		doc := &keywordDoc{
			chunkID:    chunk.ID,
			documentID: chunk.DocumentID,
			length:     len(tokens),
			terms:      make(map[string]int),
		}
		for _, t := range tokens {
			doc.terms[t]++
		}
		if old, ok := b.docs[chunk.ID]; ok {
			b.removeLocked(old)
		}
		b.docs[chunk.ID] = doc
		b.totalLen += doc.length
		for term, tf := range doc.terms {
			if b.postings[term] == nil {
				b.postings[term] = make(map[string]int)
			}
			b.postings[term][chunk.ID] = tf
		}
	}
}

// Search scores chunks against the query with BM25 and returns the topK.
// Ties break on chunk ID for deterministic ordering.
func (b *BM25Index) Search(query string, topK int, documentID string) []KeywordHit {
	if topK <= 0 {
		return nil
	}
	queryTerms := textutil.Tokenize(query)
	if len(queryTerms) == 0 {
		return nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	n := len(b.docs)
	if n == 0 {
		return nil
	}
	avgLen := float64(b.totalLen) / float64(n)

	scores := make(map[string]float64)
	for _, term := range queryTerms {
		posting, ok := b.postings[term]
		if !ok {
			continue
		}
		idf := math.Log(1 + (float64(n)-float64(len(posting))+0.5)/(float64(len(posting))+0.5))
		for chunkID, tf := range posting {
			doc := b.docs[chunkID]
			if documentID != "" && doc.documentID != documentID {
				continue
			}
			norm := 1 - bm25B + bm25B*float64(doc.length)/avgLen
			scores[chunkID] += idf * float64(tf) * (bm25K1 + 1) / (float64(tf) + bm25K1*norm)
		}
	}

	hits := make([]KeywordHit, 0, len(scores))
	for chunkID, score := range scores {
		hits = append(hits, KeywordHit{ChunkID: chunkID, Score: score})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

// RemoveDocument drops all chunks belonging to the document.
func (b *BM25Index) RemoveDocument(documentID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, doc := range b.docs {
		if doc.documentID == documentID {
			b.removeLocked(doc)
		}
	}
}

// Count returns the number of indexed chunks.
func (b *BM25Index) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.docs)
}

func (b *BM25Index) removeLocked(doc *keywordDoc) {
	delete(b.docs, doc.chunkID)
	b.totalLen -= doc.length
	for term := range doc.terms {
		delete(b.postings[term], doc.chunkID)
		if len(b.postings[term]) == 0 {
			delete(b.postings, term)
		}
	}
}
