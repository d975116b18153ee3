package biz

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/docintel/internal/model"
	"github.com/kart-io/docintel/internal/pkg/textutil"
)

// GetDocument returns one document's metadata.
func (s *DocService) GetDocument(ctx context.Context, id string) (*model.DocumentInfo, error) {
	doc, err := s.store.Docs().GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	info := documentInfo(doc)
	return &info, nil
}

// ListDocuments returns all documents, newest first.
func (s *DocService) ListDocuments(ctx context.Context) ([]model.DocumentInfo, error) {
	docs, err := s.store.Docs().ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	infos := make([]model.DocumentInfo, len(docs))
	for i := range docs {
		infos[i] = documentInfo(&docs[i])
	}
	return infos, nil
}

// DeleteDocument removes the document from storage and both indexes and
// invalidates cached answers that may have been grounded on it.
func (s *DocService) DeleteDocument(ctx context.Context, id string) error {
	if err := s.store.DeleteDocument(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx)
	logger.Infow("document deleted", "document_id", id)
	return nil
}

// GetPages returns per-page extraction details for a document.
func (s *DocService) GetPages(ctx context.Context, id string) ([]model.PageExtractionDetail, error) {
	if _, err := s.store.Docs().GetDocument(ctx, id); err != nil {
		return nil, err
	}
	pages, err := s.store.Docs().ListPages(ctx, id)
	if err != nil {
		return nil, err
	}

	details := make([]model.PageExtractionDetail, len(pages))
	for i, p := range pages {
		details[i] = model.PageExtractionDetail{
			Page:           p.Number,
			PrimaryMethod:  p.PrimaryMethod,
			HasDigital:     p.DigitalText != "",
			HasOCR:         p.OCRText != "",
			DigitalPreview: textutil.Preview(p.DigitalText, 200),
			OCRPreview:     textutil.Preview(p.OCRText, 200),
			BlockCount:     p.BlockCount,
			FailureReason:  p.FailureReason,
		}
		if p.StepsJSON != "" {
			var steps []model.StepSnapshot
			if err := json.Unmarshal([]byte(p.StepsJSON), &steps); err == nil {
				details[i].PreprocessingSteps = make(map[string]string, len(steps))
				for _, step := range steps {
					details[i].PreprocessingSteps[step.Name] = step.Image
				}
			}
		}
	}
	return details, nil
}

// GetEntities returns the document's aggregated entities grouped by label.
func (s *DocService) GetEntities(ctx context.Context, id string) ([]model.EntityGroup, error) {
	if _, err := s.store.Docs().GetDocument(ctx, id); err != nil {
		return nil, err
	}
	entities, err := s.store.Docs().ListEntities(ctx, id)
	if err != nil {
		return nil, err
	}

	// Rows come back ordered by label then value, so grouping is a single
	// pass.
	var groups []model.EntityGroup
	for _, e := range entities {
		if len(groups) == 0 || groups[len(groups)-1].Label != e.Label {
			groups = append(groups, model.EntityGroup{Label: e.Label})
		}
		groups[len(groups)-1].Values = append(groups[len(groups)-1].Values, e.Value)
	}
	return groups, nil
}

func documentInfo(doc *model.Document) model.DocumentInfo {
	return model.DocumentInfo{
		ID:          doc.ID,
		Filename:    doc.Filename,
		Status:      doc.Status,
		PageCount:   doc.PageCount,
		TotalChunks: doc.TotalChunks,
		UploadedAt:  doc.UploadedAt.Format(time.RFC3339),
	}
}
