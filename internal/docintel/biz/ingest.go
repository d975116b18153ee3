package biz

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kart-io/logger"
	"github.com/panjf2000/ants/v2"

	"github.com/kart-io/docintel/internal/docintel/extract"
	"github.com/kart-io/docintel/internal/docintel/ner"
	"github.com/kart-io/docintel/internal/docintel/store"
	"github.com/kart-io/docintel/internal/model"
	"github.com/kart-io/docintel/internal/pkg/textutil"
	"github.com/kart-io/docintel/pkg/errors"
)

const previewLen = 500

// Ingest runs the full pipeline for one upload: type detection, per-page
// extraction, entity recognition, chunking, embedding and index commit.
// The document row is created up front in processing state, so a failure
// at any later stage leaves a visible error document rather than nothing.
func (s *DocService) Ingest(ctx context.Context, filename string, data []byte) (*model.DocumentUploadResponse, error) {
	start := time.Now()

	fileType, err := extract.DetectType(data)
	if err != nil {
		return nil, err
	}

	doc := &model.Document{
		ID:       uuid.NewString(),
		Filename: filename,
		FileType: fileType,
		Status:   model.StatusProcessing,
	}
	if err := s.store.Docs().CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	logger.Infow("ingest started",
		"document_id", doc.ID,
		"filename", filename,
		"file_type", fileType,
		"size_bytes", len(data))

	resp, err := s.runPipeline(ctx, doc, data)
	s.metrics.RecordIngest(doc.TotalChunks, time.Since(start), err)
	if err != nil {
		s.markFailed(doc, err)
		return nil, err
	}

	logger.Infow("ingest finished",
		"document_id", doc.ID,
		"pages", doc.PageCount,
		"chunks", doc.TotalChunks,
		"duration", time.Since(start).String())
	return resp, nil
}

func (s *DocService) runPipeline(ctx context.Context, doc *model.Document, data []byte) (*model.DocumentUploadResponse, error) {
	pages, err := s.extractPages(ctx, doc, data)
	if err != nil {
		return nil, err
	}
	doc.PageCount = len(pages)

	chunks, pageRows, mentions := s.chunkPages(doc, pages)
	if len(chunks) == 0 {
		return nil, errors.ErrExtraction.WithMessage("no text could be extracted from any page")
	}

	vectors, err := s.embedChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}
	for i := range chunks {
		chunks[i].EmbeddingRaw = store.EncodeVector(vectors[i])
	}

	entities := aggregateEntities(doc.ID, mentions)

	doc.Status = model.StatusSuccess
	doc.TotalChunks = len(chunks)
	doc.Preview = textutil.Preview(firstText(pages), previewLen)
	doc.Message = fmt.Sprintf("processed %d pages into %d chunks", doc.PageCount, len(chunks))

	if err := s.store.CommitIngest(ctx, doc, pageRows, chunks, vectors, entities); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)

	return &model.DocumentUploadResponse{
		ID:                   doc.ID,
		Filename:             doc.Filename,
		Status:               doc.Status,
		PageCount:            doc.PageCount,
		TotalChunks:          doc.TotalChunks,
		Message:              doc.Message,
		ExtractedTextPreview: doc.Preview,
		Entities:             ner.Summarize(mentions),
		ExtractionDetails:    extractionDetails(pages),
	}, nil
}

// extractPages dispatches on file type. PDF pages run on a worker pool;
// images are a single page.
func (s *DocService) extractPages(ctx context.Context, doc *model.Document, data []byte) ([]*extract.PageExtraction, error) {
	if doc.FileType != extract.TypePDF {
		page, err := s.extractor.ExtractImage(ctx, data)
		if err != nil {
			return nil, errors.ErrIngestCancelled.WithCause(err)
		}
		s.metrics.RecordPage(true, page.Failed())
		return []*extract.PageExtraction{page}, nil
	}

	// tabula reads from a file path; stage the upload in a temp file.
	tmp, err := os.CreateTemp("", "docintel-*"+filepath.Ext(doc.Filename))
	if err != nil {
		return nil, fmt.Errorf("stage upload: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("stage upload: %w", err)
	}
	tmp.Close()

	pdf, err := s.extractor.OpenPDF(tmp.Name())
	if err != nil {
		return nil, errors.ErrExtraction.WithCause(err)
	}
	defer pdf.Close()

	pool, err := ants.NewPool(s.cfg.PageWorkers)
	if err != nil {
		return nil, fmt.Errorf("create page worker pool: %w", err)
	}
	defer pool.Release()

	pageCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		pages   = make([]*extract.PageExtraction, pdf.PageCount())
		poolErr error
	)
	for n := 1; n <= pdf.PageCount(); n++ {
		number := n
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			page, err := pdf.ExtractPage(pageCtx, number)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if poolErr == nil {
					poolErr = err
					cancel()
				}
				return
			}
			pages[number-1] = page
			s.metrics.RecordPage(page.OCRText != "" || page.Method == model.MethodOCR, page.Failed())
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			if poolErr == nil {
				poolErr = submitErr
			}
			mu.Unlock()
			break
		}
	}
	wg.Wait()

	if poolErr != nil {
		return nil, errors.ErrIngestCancelled.WithCause(poolErr)
	}
	return pages, nil
}

// chunkPages splits every successful page into chunks, attaches entity
// mentions and builds the page rows for persistence. Chunk ordinals are
// global across the document in page order.
func (s *DocService) chunkPages(doc *model.Document, pages []*extract.PageExtraction) ([]model.Chunk, []model.Page, []model.EntityMention) {
	var (
		chunks      []model.Chunk
		pageRows    []model.Page
		allMentions []model.EntityMention
		ordinal     int
	)

	for _, page := range pages {
		row := model.Page{
			DocumentID:    doc.ID,
			Number:        page.Number,
			PrimaryMethod: page.Method,
			DigitalText:   page.DigitalText,
			OCRText:       page.OCRText,
			BlockCount:    page.BlockCount,
			FailureReason: page.FailureReason,
		}
		if len(page.Steps) > 0 {
			if stepsJSON, err := json.Marshal(page.Steps); err == nil {
				row.StepsJSON = string(stepsJSON)
			}
		}
		pageRows = append(pageRows, row)

		text := page.Text()
		if page.Failed() || strings.TrimSpace(text) == "" {
			continue
		}

		pageMentions := s.recognizer.Extract(text)
		allMentions = append(allMentions, pageMentions...)

		for _, piece := range s.chunker.Split(text) {
			chunk := model.Chunk{
				// Zero-padded ordinal keeps lexicographic chunk ID order
				// equal to (document, ordinal) order.
				ID:         fmt.Sprintf("%s-%05d", doc.ID, ordinal),
				DocumentID: doc.ID,
				PageNumber: page.Number,
				Ordinal:    ordinal,
				Text:       piece.Text,
				Method:     page.Method,
			}
			// Chunk offsets index the page text, so page-level entity
			// spans map straight onto each chunk.
			if hits := ner.Intersecting(pageMentions, piece.Start, piece.Start+len(piece.Text)); len(hits) > 0 {
				if entJSON, err := json.Marshal(hits); err == nil {
					chunk.EntitiesJSON = string(entJSON)
				}
			}
			chunks = append(chunks, chunk)
			ordinal++
		}
	}
	return chunks, pageRows, allMentions
}

// embedChunks embeds chunk texts in bounded batches with retries.
func (s *DocService) embedChunks(ctx context.Context, chunks []model.Chunk) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))
	for lo := 0; lo < len(chunks); lo += s.cfg.EmbedBatchSize {
		hi := lo + s.cfg.EmbedBatchSize
		if hi > len(chunks) {
			hi = len(chunks)
		}
		texts := make([]string, 0, hi-lo)
		for _, c := range chunks[lo:hi] {
			texts = append(texts, c.Text)
		}

		batch, err := s.embedBatch(ctx, texts)
		s.metrics.RecordEmbedding(err)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func (s *DocService) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= s.cfg.EmbedRetries; attempt++ {
		if attempt > 0 {
			s.metrics.RecordEmbeddingRetry()
			select {
			case <-ctx.Done():
				return nil, errors.ErrIngestCancelled.WithCause(ctx.Err())
			case <-time.After(embedBackoff(attempt)):
			}
		}
		vectors, err := s.embedder.Embed(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		lastErr = err
		logger.Warnw("embedding batch failed",
			"attempt", attempt+1,
			"batch_size", len(texts),
			"error", err)
	}
	return nil, lastErr
}

// embedBackoff doubles per retry attempt: 1s, 2s, 4s, ...
func embedBackoff(attempt int) time.Duration {
	return time.Second << (attempt - 1)
}

// markFailed records the failure on the document row so the upload stays
// visible with its error message.
func (s *DocService) markFailed(doc *model.Document, cause error) {
	doc.Status = model.StatusError
	doc.Message = cause.Error()
	// The request context may already be cancelled; use a short detached
	// context so the failure is still recorded.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.Docs().UpdateDocument(ctx, doc); err != nil {
		logger.Errorw("failed to record ingest failure", "document_id", doc.ID, "error", err)
	}
}

// aggregateEntities dedupes mentions into per-document (label, value) rows.
func aggregateEntities(documentID string, mentions []model.EntityMention) []model.DocumentEntity {
	seen := make(map[string]struct{})
	var entities []model.DocumentEntity
	for _, m := range mentions {
		key := m.Label + "\x00" + m.Text
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		entities = append(entities, model.DocumentEntity{
			DocumentID: documentID,
			Label:      m.Label,
			Value:      m.Text,
		})
	}
	sort.Slice(entities, func(i, j int) bool {
		if entities[i].Label != entities[j].Label {
			return entities[i].Label < entities[j].Label
		}
		return entities[i].Value < entities[j].Value
	})
	return entities
}

// firstText returns the first non-empty page text in page order.
func firstText(pages []*extract.PageExtraction) string {
	for _, p := range pages {
		if t := p.Text(); strings.TrimSpace(t) != "" {
			return t
		}
	}
	return ""
}

// extractionDetails projects the per-page results into the API shape.
func extractionDetails(pages []*extract.PageExtraction) []model.PageExtractionDetail {
	details := make([]model.PageExtractionDetail, 0, len(pages))
	for _, p := range pages {
		detail := model.PageExtractionDetail{
			Page:           p.Number,
			PrimaryMethod:  p.Method,
			HasDigital:     p.DigitalText != "",
			HasOCR:         p.OCRText != "",
			DigitalPreview: textutil.Preview(p.DigitalText, 200),
			OCRPreview:     textutil.Preview(p.OCRText, 200),
			BlockCount:     p.BlockCount,
			FailureReason:  p.FailureReason,
		}
		if len(p.Steps) > 0 {
			detail.PreprocessingSteps = make(map[string]string, len(p.Steps))
			for _, step := range p.Steps {
				detail.PreprocessingSteps[step.Name] = step.Image
			}
		}
		details = append(details, detail)
	}
	return details
}
