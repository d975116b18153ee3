package errors

import "net/http"

// Common/base errors.
var (
	// ErrInternal is the catch-all internal error.
	ErrInternal = Register(New(MakeCode(ServiceCommon, CategoryInternal, 1), http.StatusInternalServerError, "Internal server error"))

	// ErrInvalidParam indicates a request validation failure.
	ErrInvalidParam = Register(New(MakeCode(ServiceCommon, CategoryRequest, 1), http.StatusBadRequest, "Invalid request parameters"))
)

// Document pipeline errors.
var (
	// ErrUnsupportedFileType rejects uploads whose content is neither a PDF
	// nor a supported raster image, regardless of file extension.
	ErrUnsupportedFileType = Register(New(MakeCode(ServiceDocs, CategoryRequest, 1), http.StatusBadRequest, "Unsupported file type"))

	// ErrDocumentNotFound indicates an unknown document id.
	ErrDocumentNotFound = Register(New(MakeCode(ServiceDocs, CategoryResource, 1), http.StatusNotFound, "Document not found"))

	// ErrExtraction is a page-level extraction failure. It is recorded on the
	// page and never aborts ingestion of the remaining pages.
	ErrExtraction = Register(New(MakeCode(ServiceDocs, CategoryInternal, 1), http.StatusInternalServerError, "Page extraction failed"))

	// ErrEmbedding indicates a chunk could not be embedded after bounded
	// retries; the chunk is dropped from the index and the failure recorded.
	ErrEmbedding = Register(New(MakeCode(ServiceDocs, CategoryNetwork, 1), http.StatusBadGateway, "Embedding generation failed"))

	// ErrIndexConsistency is fatal for the write that raised it: the insert
	// is rolled back and nothing becomes partially visible.
	ErrIndexConsistency = Register(New(MakeCode(ServiceDocs, CategoryDatabase, 1), http.StatusInternalServerError, "Index consistency violation"))

	// ErrIngestCancelled reports a cancelled upload whose partial state was
	// rolled back.
	ErrIngestCancelled = Register(New(MakeCode(ServiceDocs, CategoryInternal, 2), http.StatusInternalServerError, "Ingestion cancelled"))
)

// Search errors.
var (
	// ErrEmptyQuery rejects blank search queries.
	ErrEmptyQuery = Register(New(MakeCode(ServiceSearch, CategoryRequest, 1), http.StatusBadRequest, "Query must not be empty"))

	// ErrInvalidSearchType rejects unknown search modes.
	ErrInvalidSearchType = Register(New(MakeCode(ServiceSearch, CategoryRequest, 2), http.StatusBadRequest, "Invalid search type"))

	// ErrSearchFailed indicates an index store failure during search.
	ErrSearchFailed = Register(New(MakeCode(ServiceSearch, CategoryInternal, 1), http.StatusInternalServerError, "Search failed"))
)

// Chat errors.
var (
	// ErrGeneration indicates the answer-generation service is unavailable.
	// Distinct from insufficient grounding, which is a successful answer.
	ErrGeneration = Register(New(MakeCode(ServiceChat, CategoryNetwork, 1), http.StatusServiceUnavailable, "Answer generation unavailable"))

	// ErrChatTimeout indicates the chat request exceeded its deadline.
	ErrChatTimeout = Register(New(MakeCode(ServiceChat, CategoryTimeout, 1), http.StatusRequestTimeout, "Chat request timed out"))
)
