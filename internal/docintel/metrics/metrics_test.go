package metrics_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kart-io/docintel/internal/docintel/metrics"
)

func TestGetReturnsSingleton(t *testing.T) {
	assert.Same(t, metrics.Get(), metrics.Get())
}

func TestRecordIngest(t *testing.T) {
	m := metrics.Get()
	m.Reset()

	m.RecordIngest(12, 800*time.Millisecond, nil)
	m.RecordIngest(0, time.Second, errors.New("boom"))

	out := m.Export("docintel")
	assert.Contains(t, out, "docintel_documents_ingested_total 1")
	assert.Contains(t, out, "docintel_documents_failed_total 1")
	assert.Contains(t, out, "docintel_chunks_indexed_total 12")
	assert.Contains(t, out, "docintel_ingest_duration_seconds_total 0.800000")
}

func TestRecordPages(t *testing.T) {
	m := metrics.Get()
	m.Reset()

	m.RecordPage(false, false)
	m.RecordPage(true, false)
	m.RecordPage(true, true)

	out := m.Export("docintel")
	assert.Contains(t, out, "docintel_pages_processed_total 3")
	assert.Contains(t, out, "docintel_pages_ocr_total 2")
	assert.Contains(t, out, "docintel_pages_failed_total 1")
}

func TestRecordSearchAndChat(t *testing.T) {
	m := metrics.Get()
	m.Reset()

	m.RecordSearch(10*time.Millisecond, nil)
	m.RecordSearch(0, errors.New("bad query"))

	m.RecordChat(50*time.Millisecond, false, false, nil)
	m.RecordChat(0, true, false, nil)
	m.RecordChat(0, false, true, nil)
	m.RecordChat(0, false, false, errors.New("llm down"))

	out := m.Export("docintel")
	assert.Contains(t, out, "docintel_searches_total 2")
	assert.Contains(t, out, "docintel_search_errors_total 1")
	assert.Contains(t, out, "docintel_chat_total 4")
	assert.Contains(t, out, "docintel_chat_errors_total 1")
	assert.Contains(t, out, "docintel_chat_cache_hits_total 1")
	assert.Contains(t, out, "docintel_chat_insufficient_grounding_total 1")
}

func TestRecordEmbedding(t *testing.T) {
	m := metrics.Get()
	m.Reset()

	m.RecordEmbedding(nil)
	m.RecordEmbedding(errors.New("timeout"))
	m.RecordEmbeddingRetry()

	out := m.Export("docintel")
	assert.Contains(t, out, "docintel_embed_calls_total 2")
	assert.Contains(t, out, "docintel_embed_errors_total 1")
	assert.Contains(t, out, "docintel_embed_retries_total 1")
}

func TestExportFormat(t *testing.T) {
	m := metrics.Get()
	m.Reset()

	out := m.Export("docintel")
	assert.True(t, strings.Contains(out, "# HELP docintel_documents_ingested_total"))
	assert.True(t, strings.Contains(out, "# TYPE docintel_documents_ingested_total counter"))
	assert.Contains(t, out, "docintel_uptime_seconds")
}
