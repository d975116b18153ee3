package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kart-io/docintel/internal/model"
	apperrors "github.com/kart-io/docintel/pkg/errors"
)

// SQLiteStore is the GORM-backed durable store.
type SQLiteStore struct {
	db *gorm.DB
}

var _ DocStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the SQLite database at path and runs
// migrations. Use ":memory:" for a throwaway store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %s: %w", path, err)
	}

	if err := db.AutoMigrate(
		&model.Document{},
		&model.Page{},
		&model.Chunk{},
		&model.DocumentEntity{},
		&model.IndexMeta{},
	); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// CreateDocument inserts a new document row.
func (s *SQLiteStore) CreateDocument(ctx context.Context, doc *model.Document) error {
	return s.db.WithContext(ctx).Create(doc).Error
}

// UpdateDocument saves all fields of the document row.
func (s *SQLiteStore) UpdateDocument(ctx context.Context, doc *model.Document) error {
	return s.db.WithContext(ctx).Save(doc).Error
}

// GetDocument fetches a document by ID.
func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	var doc model.Document
	err := s.db.WithContext(ctx).First(&doc, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListDocuments returns all documents, newest upload first.
func (s *SQLiteStore) ListDocuments(ctx context.Context) ([]model.Document, error) {
	var docs []model.Document
	err := s.db.WithContext(ctx).Order("uploaded_at DESC").Find(&docs).Error
	return docs, err
}

// DeleteDocument removes the document and all dependent rows in one
// transaction.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&model.Document{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrDocumentNotFound
		}
		if err := tx.Delete(&model.Page{}, "document_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.Chunk{}, "document_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&model.DocumentEntity{}, "document_id = ?", id).Error
	})
}

// DeleteDocumentData removes dependent rows but keeps the document row.
func (s *SQLiteStore) DeleteDocumentData(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.Page{}, "document_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.Chunk{}, "document_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&model.DocumentEntity{}, "document_id = ?", id).Error
	})
}

// CreatePages inserts page rows.
func (s *SQLiteStore) CreatePages(ctx context.Context, pages []model.Page) error {
	if len(pages) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&pages).Error
}

// ListPages returns the document's pages in page order.
func (s *SQLiteStore) ListPages(ctx context.Context, documentID string) ([]model.Page, error) {
	var pages []model.Page
	err := s.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("number ASC").
		Find(&pages).Error
	return pages, err
}

// CreateChunks inserts chunk rows.
func (s *SQLiteStore) CreateChunks(ctx context.Context, chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(&chunks, 200).Error
}

// GetChunk fetches a chunk by ID.
func (s *SQLiteStore) GetChunk(ctx context.Context, id string) (*model.Chunk, error) {
	var chunk model.Chunk
	err := s.db.WithContext(ctx).First(&chunk, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("chunk %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &chunk, nil
}

// ListChunksByDocument returns the document's chunks in page and ordinal
// order.
func (s *SQLiteStore) ListChunksByDocument(ctx context.Context, documentID string) ([]model.Chunk, error) {
	var chunks []model.Chunk
	err := s.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("page_number ASC, ordinal ASC").
		Find(&chunks).Error
	return chunks, err
}

// ListAllChunks returns every chunk in the store.
func (s *SQLiteStore) ListAllChunks(ctx context.Context) ([]model.Chunk, error) {
	var chunks []model.Chunk
	err := s.db.WithContext(ctx).Find(&chunks).Error
	return chunks, err
}

// CountChunks returns the total number of chunks.
func (s *SQLiteStore) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Chunk{}).Count(&count).Error
	return count, err
}

// SaveEntities replaces the document's entity rows.
func (s *SQLiteStore) SaveEntities(ctx context.Context, documentID string, entities []model.DocumentEntity) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.DocumentEntity{}, "document_id = ?", documentID).Error; err != nil {
			return err
		}
		if len(entities) == 0 {
			return nil
		}
		return tx.CreateInBatches(&entities, 500).Error
	})
}

// ListEntities returns the document's entities grouped stably by label and
// value.
func (s *SQLiteStore) ListEntities(ctx context.Context, documentID string) ([]model.DocumentEntity, error) {
	var entities []model.DocumentEntity
	err := s.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("label ASC, value ASC").
		Find(&entities).Error
	return entities, err
}

// GetIndexMeta returns the persisted index metadata, or nil when the index
// has never been written.
func (s *SQLiteStore) GetIndexMeta(ctx context.Context) (*model.IndexMeta, error) {
	var meta model.IndexMeta
	err := s.db.WithContext(ctx).First(&meta).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

// SaveIndexMeta upserts the single index metadata row.
func (s *SQLiteStore) SaveIndexMeta(ctx context.Context, meta *model.IndexMeta) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.IndexMeta{}).Error; err != nil {
			return err
		}
		return tx.Create(meta).Error
	})
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
