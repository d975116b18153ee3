package biz

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/docintel/internal/model"
	"github.com/kart-io/docintel/internal/pkg/textutil"
	"github.com/kart-io/docintel/pkg/errors"
)

// scoredChunk is an intermediate ranking entry before hydration.
type scoredChunk struct {
	chunkID string
	score   float64
}

// Search runs a semantic, keyword or hybrid query over the corpus.
func (s *DocService) Search(ctx context.Context, req *model.SearchRequest) (*model.SearchResponse, error) {
	start := time.Now()
	resp, err := s.search(ctx, req)
	s.metrics.RecordSearch(time.Since(start), err)
	return resp, err
}

func (s *DocService) search(ctx context.Context, req *model.SearchRequest) (*model.SearchResponse, error) {
	if req.Query == "" {
		return nil, errors.ErrEmptyQuery
	}
	searchType := req.SearchType
	if searchType == "" {
		searchType = model.SearchHybrid
	}
	topK := s.clampTopK(req.TopK)

	if req.DocumentID != "" {
		// Fail closed: an unknown document must error, not silently
		// widen to the whole corpus.
		if _, err := s.store.Docs().GetDocument(ctx, req.DocumentID); err != nil {
			return nil, err
		}
	}

	var (
		ranked []scoredChunk
		err    error
	)
	switch searchType {
	case model.SearchSemantic:
		ranked, err = s.semanticRanking(ctx, req.Query, topK, req.DocumentID)
	case model.SearchKeyword:
		ranked = s.keywordRanking(req.Query, topK, req.DocumentID)
	case model.SearchHybrid:
		ranked, err = s.hybridRanking(ctx, req.Query, topK, req.DocumentID)
	default:
		return nil, errors.ErrInvalidSearchType.WithMessagef("unknown search type %q", searchType)
	}
	if err != nil {
		return nil, err
	}

	results, err := s.hydrate(ctx, ranked)
	if err != nil {
		return nil, errors.ErrSearchFailed.WithCause(err)
	}

	logger.Infow("search executed",
		"search_type", searchType,
		"top_k", topK,
		"document_id", req.DocumentID,
		"results", len(results))

	return &model.SearchResponse{
		Query:        req.Query,
		SearchType:   searchType,
		TotalResults: len(results),
		Results:      results,
	}, nil
}

// semanticRanking embeds the query and ranks by normalized cosine
// similarity in [0, 1].
func (s *DocService) semanticRanking(ctx context.Context, query string, topK int, documentID string) ([]scoredChunk, error) {
	vector, err := s.embedder.EmbedSingle(ctx, query)
	if err != nil {
		return nil, err
	}
	hits, err := s.store.SemanticSearch(ctx, vector, topK, documentID)
	if err != nil {
		return nil, errors.ErrSearchFailed.WithCause(err)
	}
	ranked := make([]scoredChunk, len(hits))
	for i, h := range hits {
		ranked[i] = scoredChunk{chunkID: h.ChunkID, score: textutil.NormalizeCosineSimilarity(h.Score)}
	}
	return ranked, nil
}

// keywordRanking ranks by BM25 with scores min-max normalized into [0, 1]
// so they are comparable across queries.
func (s *DocService) keywordRanking(query string, topK int, documentID string) []scoredChunk {
	hits := s.store.KeywordSearch(query, topK, documentID)
	if len(hits) == 0 {
		return nil
	}

	minScore, maxScore := hits[0].Score, hits[0].Score
	for _, h := range hits {
		if h.Score < minScore {
			minScore = h.Score
		}
		if h.Score > maxScore {
			maxScore = h.Score
		}
	}

	ranked := make([]scoredChunk, len(hits))
	for i, h := range hits {
		score := 1.0
		if maxScore > minScore {
			score = (h.Score - minScore) / (maxScore - minScore)
		}
		ranked[i] = scoredChunk{chunkID: h.ChunkID, score: score}
	}
	return ranked
}

// hybridRanking fuses both rankings: each candidate's fused score is the
// weighted sum of its normalized semantic and keyword scores, with a
// missing side contributing zero. Candidates are the union of both
// result sets; over-fetching both sides keeps the union from starving
// either signal.
func (s *DocService) hybridRanking(ctx context.Context, query string, topK int, documentID string) ([]scoredChunk, error) {
	fetch := topK * 2
	semantic, err := s.semanticRanking(ctx, query, fetch, documentID)
	if err != nil {
		return nil, err
	}
	keyword := s.keywordRanking(query, fetch, documentID)

	fused := make(map[string]float64, len(semantic)+len(keyword))
	for _, sc := range semantic {
		fused[sc.chunkID] += s.cfg.SemanticWeight * sc.score
	}
	for _, kc := range keyword {
		fused[kc.chunkID] += (1 - s.cfg.SemanticWeight) * kc.score
	}

	ranked := make([]scoredChunk, 0, len(fused))
	for chunkID, score := range fused {
		ranked = append(ranked, scoredChunk{chunkID: chunkID, score: score})
	}
	// Ties break on chunk ID, which encodes (document, ordinal), so equal
	// scores always order the same way.
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].chunkID < ranked[j].chunkID
	})
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked, nil
}

// hydrate loads chunk and document rows for a ranking and projects them
// into API results.
func (s *DocService) hydrate(ctx context.Context, ranked []scoredChunk) ([]*model.SearchResult, error) {
	results := make([]*model.SearchResult, 0, len(ranked))
	filenames := make(map[string]string)

	for _, sc := range ranked {
		chunk, err := s.store.Docs().GetChunk(ctx, sc.chunkID)
		if err != nil {
			// The indexes and the durable store are written together, so
			// a miss here means a torn delete; skip rather than fail the
			// whole query.
			logger.Warnw("ranked chunk missing from store", "chunk_id", sc.chunkID, "error", err)
			continue
		}

		filename, ok := filenames[chunk.DocumentID]
		if !ok {
			doc, err := s.store.Docs().GetDocument(ctx, chunk.DocumentID)
			if err != nil {
				logger.Warnw("ranked chunk references missing document", "chunk_id", sc.chunkID)
				continue
			}
			filename = doc.Filename
			filenames[chunk.DocumentID] = filename
		}

		result := &model.SearchResult{
			DocumentID:       chunk.DocumentID,
			Filename:         filename,
			ChunkText:        chunk.Text,
			PageNumber:       chunk.PageNumber,
			Score:            sc.score,
			ExtractionMethod: chunk.Method,
		}
		if chunk.EntitiesJSON != "" {
			_ = json.Unmarshal([]byte(chunk.EntitiesJSON), &result.Entities)
		}
		results = append(results, result)
	}
	return results, nil
}
