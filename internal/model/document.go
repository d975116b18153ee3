// Package model provides data models for the document intelligence service.
package model

import (
	"time"
)

// Document ingestion statuses.
const (
	StatusProcessing = "processing"
	StatusSuccess    = "success"
	StatusError      = "error"
)

// Extraction methods.
const (
	MethodDigital = "digital"
	MethodOCR     = "ocr"
)

// Document represents an ingested document.
type Document struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Filename    string    `json:"filename" gorm:"type:varchar(255);not null"`
	FileType    string    `json:"file_type" gorm:"type:varchar(16)"` // pdf, image
	Status      string    `json:"status" gorm:"type:varchar(32);default:'processing'"`
	PageCount   int       `json:"page_count" gorm:"default:0"`
	TotalChunks int       `json:"total_chunks" gorm:"default:0"`
	Preview     string    `json:"preview,omitempty" gorm:"type:text"`
	Message     string    `json:"message,omitempty" gorm:"type:text"`
	UploadedAt  time.Time `json:"uploaded_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for Document.
func (Document) TableName() string {
	return "documents"
}

// Page represents a single page of a document with both extraction candidates.
type Page struct {
	ID            int64  `json:"-" gorm:"primaryKey;autoIncrement"`
	DocumentID    string `json:"document_id" gorm:"type:varchar(64);index;not null"`
	Number        int    `json:"number" gorm:"not null"` // 1-based
	PrimaryMethod string `json:"primary_method" gorm:"type:varchar(16)"`
	DigitalText   string `json:"digital_text,omitempty" gorm:"type:text"`
	OCRText       string `json:"ocr_text,omitempty" gorm:"type:text"`
	BlockCount    int    `json:"block_count" gorm:"default:0"`
	FailureReason string `json:"failure_reason,omitempty" gorm:"type:text"`
	StepsJSON     string `json:"-" gorm:"type:text"` // serialized []StepSnapshot
}

// TableName specifies the table name for Page.
func (Page) TableName() string {
	return "pages"
}

// PrimaryText returns the text of the chosen extraction method.
func (p *Page) PrimaryText() string {
	if p.PrimaryMethod == MethodOCR {
		return p.OCRText
	}
	return p.DigitalText
}

// StepSnapshot is an intermediate image captured during OCR preprocessing.
type StepSnapshot struct {
	Name  string `json:"name"`
	Image string `json:"image"` // base64 JPEG thumbnail
}

// EntityMention is a single entity occurrence with its span in the source text.
type EntityMention struct {
	Text  string `json:"text"`
	Label string `json:"label"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// DocumentEntity is an aggregated (label, value) pair scoped to a document.
type DocumentEntity struct {
	ID         int64  `json:"-" gorm:"primaryKey;autoIncrement"`
	DocumentID string `json:"-" gorm:"type:varchar(64);index;not null"`
	Label      string `json:"label" gorm:"type:varchar(32);not null"`
	Value      string `json:"value" gorm:"type:varchar(512);not null"`
}

// TableName specifies the table name for DocumentEntity.
func (DocumentEntity) TableName() string {
	return "document_entities"
}

// EntityGroup is the per-label summary exposed by the API.
type EntityGroup struct {
	Label  string   `json:"label"`
	Values []string `json:"values"`
}

// Chunk is the atomic retrieval unit. Chunks are immutable after creation.
type Chunk struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(80)"`
	DocumentID   string    `json:"document_id" gorm:"type:varchar(64);index;not null"`
	PageNumber   int       `json:"page_number" gorm:"not null"`
	Ordinal      int       `json:"ordinal" gorm:"not null"` // position within the document
	Text         string    `json:"text" gorm:"type:text;not null"`
	Method       string    `json:"method" gorm:"type:varchar(16)"` // extraction method of the owning page
	EmbeddingRaw []byte    `json:"-" gorm:"type:blob"`             // serialized []float32
	EntitiesJSON string    `json:"-" gorm:"type:text"`             // serialized []EntityMention
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for Chunk.
func (Chunk) TableName() string {
	return "chunks"
}

// IndexMeta records the embedding space the index was built with.
// Mixing embedding spaces silently corrupts semantic search, so inserts
// are refused when the fingerprint or dimension differs.
type IndexMeta struct {
	ID          int64  `json:"-" gorm:"primaryKey"`
	Fingerprint string `json:"fingerprint" gorm:"type:varchar(128);not null"`
	Dimension   int    `json:"dimension" gorm:"not null"`
}

// TableName specifies the table name for IndexMeta.
func (IndexMeta) TableName() string {
	return "index_meta"
}

// SearchResult is a transient, query-scoped projection of a chunk.
type SearchResult struct {
	DocumentID       string          `json:"document_id"`
	Filename         string          `json:"filename"`
	ChunkText        string          `json:"chunk_text"`
	PageNumber       int             `json:"page_number"`
	Score            float64         `json:"score"`
	ExtractionMethod string          `json:"extraction_method"`
	Entities         []EntityMention `json:"entities"`
}

// ChatSource identifies a chunk an answer was grounded on.
type ChatSource struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	PageNumber int     `json:"page_number"`
	Score      float64 `json:"score"`
}

// CorpusStats are aggregate counts over the index store.
type CorpusStats struct {
	TotalDocuments int64 `json:"total_documents"`
	TotalChunks    int64 `json:"total_chunks"`
}
