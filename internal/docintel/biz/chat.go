package biz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/docintel/internal/model"
	"github.com/kart-io/docintel/pkg/component/ollama"
	"github.com/kart-io/docintel/pkg/errors"
)

// InsufficientGroundingAnswer is the fixed reply when retrieval yields no
// chunk relevant enough to ground an answer. It is deliberately constant
// so clients can detect the case.
const InsufficientGroundingAnswer = "I could not find relevant information in the uploaded documents to answer this question."

const chatSystemPrompt = `You are a document assistant. Answer the question using ONLY the provided context excerpts. ` +
	`If the context does not contain the answer, say you cannot find it in the documents. ` +
	`Cite the source document and page when possible. Do not use outside knowledge.`

// ChatModel generates an answer from a chat exchange. *ollama.Client
// satisfies it.
type ChatModel interface {
	Chat(ctx context.Context, messages []ollama.ChatMessage) (string, error)
}

// Chat answers a question grounded in retrieved chunks: retrieve, filter
// by relevance, assemble the context, generate, respond. Every answer
// carries the sources it was grounded on; no sources means the fixed
// insufficient-grounding answer.
func (s *DocService) Chat(ctx context.Context, req *model.ChatRequest) (*model.ChatResponse, error) {
	start := time.Now()
	resp, cacheHit, err := s.chat(ctx, req)
	insufficient := resp != nil && resp.Answer == InsufficientGroundingAnswer
	s.metrics.RecordChat(time.Since(start), cacheHit, insufficient, err)
	return resp, err
}

func (s *DocService) chat(ctx context.Context, req *model.ChatRequest) (*model.ChatResponse, bool, error) {
	if req.Question == "" {
		return nil, false, errors.ErrEmptyQuery
	}
	topK := s.clampTopK(req.TopK)

	if req.DocumentID != "" {
		// Fail closed on document scoping: an unknown document errors
		// instead of answering from the whole corpus.
		if _, err := s.store.Docs().GetDocument(ctx, req.DocumentID); err != nil {
			return nil, false, err
		}
	}

	if cached := s.cache.Get(ctx, req); cached != nil {
		logger.Infow("chat answer served from cache", "document_id", req.DocumentID)
		return cached, true, nil
	}

	// RETRIEVE: semantic ranking over the allowed scope. Questions are
	// phrased in natural language, so vector similarity grounds them
	// better than keyword hits on question words.
	ranked, err := s.semanticRanking(ctx, req.Question, topK, req.DocumentID)
	if err != nil {
		return nil, false, err
	}
	results, err := s.hydrate(ctx, ranked)
	if err != nil {
		return nil, false, errors.ErrSearchFailed.WithCause(err)
	}

	// Filter out weakly relevant chunks before assembling context.
	grounded := results[:0]
	for _, r := range results {
		if r.Score >= s.cfg.MinChatRelevance {
			grounded = append(grounded, r)
		}
	}

	if len(grounded) == 0 {
		return &model.ChatResponse{
			Answer:  InsufficientGroundingAnswer,
			Sources: []model.ChatSource{},
		}, false, nil
	}

	// ASSEMBLE_CONTEXT: drop same-page chunks whose text overlaps an
	// already-kept chunk and bound the total context size. The answer's
	// sources are exactly the assembled chunks, in relevance order.
	assembled := s.assembleContext(grounded)

	answer, err := s.generate(ctx, req.Question, assembled)
	if err != nil {
		return nil, false, err
	}

	sources := make([]model.ChatSource, len(assembled))
	for i, r := range assembled {
		sources[i] = model.ChatSource{
			DocumentID: r.DocumentID,
			Filename:   r.Filename,
			PageNumber: r.PageNumber,
			Score:      r.Score,
		}
	}

	resp := &model.ChatResponse{Answer: answer, Sources: sources}
	s.cache.Set(ctx, req, resp)
	return resp, false, nil
}

// assembleContext selects the excerpts that go into the prompt. Chunks
// arrive in relevance order; a chunk is dropped when a kept chunk from the
// same page already covers its text (the chunker's overlap would otherwise
// feed the model near-duplicates), and assembly stops once the context
// budget is spent. The highest-ranked chunk is always kept.
func (s *DocService) assembleContext(grounded []*model.SearchResult) []*model.SearchResult {
	budget := s.cfg.MaxContextChars
	if budget <= 0 {
		budget = 6000
	}

	var (
		kept  []*model.SearchResult
		total int
	)
	for _, r := range grounded {
		if len(kept) > 0 && total+len(r.ChunkText) > budget {
			break
		}
		if overlapsKept(kept, r) {
			continue
		}
		kept = append(kept, r)
		total += len(r.ChunkText)
	}
	return kept
}

// overlapsKept reports whether r's text duplicates a kept chunk from the
// same page. The head of one overlapping chunk appears inside the other,
// which is exactly the shape the chunker's overlap tail produces.
func overlapsKept(kept []*model.SearchResult, r *model.SearchResult) bool {
	head := r.ChunkText
	if len(head) > 80 {
		head = head[:80]
	}
	for _, k := range kept {
		if k.DocumentID != r.DocumentID || k.PageNumber != r.PageNumber {
			continue
		}
		keptHead := k.ChunkText
		if len(keptHead) > 80 {
			keptHead = keptHead[:80]
		}
		if strings.Contains(k.ChunkText, head) || strings.Contains(r.ChunkText, keptHead) {
			return true
		}
	}
	return false
}

// generate assembles the prompt from the grounded excerpts and calls the
// chat model under the configured timeout.
func (s *DocService) generate(ctx context.Context, question string, grounded []*model.SearchResult) (string, error) {
	if s.llm == nil {
		return "", errors.ErrGeneration.WithMessage("no chat model configured")
	}

	var sb strings.Builder
	sb.WriteString("Context excerpts:\n\n")
	for i, r := range grounded {
		fmt.Fprintf(&sb, "[%d] %s (page %d):\n%s\n\n", i+1, r.Filename, r.PageNumber, r.ChunkText)
	}
	fmt.Fprintf(&sb, "Question: %s", question)

	genCtx, cancel := context.WithTimeout(ctx, s.cfg.ChatTimeout)
	defer cancel()

	answer, err := s.llm.Chat(genCtx, []ollama.ChatMessage{
		{Role: "system", Content: chatSystemPrompt},
		{Role: "user", Content: sb.String()},
	})
	if err != nil {
		if genCtx.Err() == context.DeadlineExceeded {
			return "", errors.ErrChatTimeout.WithCause(err)
		}
		return "", errors.ErrGeneration.WithCause(err)
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", errors.ErrGeneration.WithMessage("chat model returned an empty answer")
	}
	return answer, nil
}
