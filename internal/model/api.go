package model

// PageExtractionDetail is the per-page extraction report returned on upload,
// exposing both extraction candidates for side-by-side comparison.
type PageExtractionDetail struct {
	Page               int               `json:"page"`
	PrimaryMethod      string            `json:"primary_method"`
	HasDigital         bool              `json:"has_digital"`
	HasOCR             bool              `json:"has_ocr"`
	DigitalPreview     string            `json:"digital_preview"`
	OCRPreview         string            `json:"ocr_preview"`
	BlockCount         int               `json:"block_count"`
	FailureReason      string            `json:"failure_reason,omitempty"`
	PreprocessingSteps map[string]string `json:"preprocessing_steps,omitempty"` // step name -> base64 thumbnail
}

// DocumentUploadResponse is the result of an upload request.
type DocumentUploadResponse struct {
	ID                   string                 `json:"id"`
	Filename             string                 `json:"filename"`
	Status               string                 `json:"status"`
	PageCount            int                    `json:"page_count"`
	TotalChunks          int                    `json:"total_chunks"`
	Message              string                 `json:"message"`
	ExtractedTextPreview string                 `json:"extracted_text_preview"`
	Entities             []EntityGroup          `json:"entities"`
	ExtractionDetails    []PageExtractionDetail `json:"extraction_details"`
}

// DocumentInfo is a document summary for list views.
type DocumentInfo struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	Status      string `json:"status"`
	PageCount   int    `json:"page_count"`
	TotalChunks int    `json:"total_chunks"`
	UploadedAt  string `json:"uploaded_at"`
}

// Search modes.
const (
	SearchSemantic = "semantic"
	SearchKeyword  = "keyword"
	SearchHybrid   = "hybrid"
)

// SearchRequest is a search query.
type SearchRequest struct {
	Query      string `json:"query" binding:"required"`
	SearchType string `json:"search_type"`
	TopK       int    `json:"top_k"`
	DocumentID string `json:"document_id,omitempty"`
}

// SearchResponse echoes the query and carries the ranked results.
type SearchResponse struct {
	Query        string          `json:"query"`
	SearchType   string          `json:"search_type"`
	TotalResults int             `json:"total_results"`
	Results      []*SearchResult `json:"results"`
}

// ChatRequest is a grounded question-answering request. DocumentID, when
// set, restricts retrieval to that document only.
type ChatRequest struct {
	Question   string `json:"question" binding:"required"`
	TopK       int    `json:"top_k"`
	DocumentID string `json:"document_id,omitempty"`
}

// ChatResponse carries the generated answer and its ordered sources.
type ChatResponse struct {
	Answer  string       `json:"answer"`
	Sources []ChatSource `json:"sources"`
}
