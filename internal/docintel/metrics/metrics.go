// Package metrics collects business metrics for the document service.
package metrics

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds service counters. All counters are updated atomically and
// exported in Prometheus text format.
type Metrics struct {
	// Ingest counters.
	documentsIngested uint64
	documentsFailed   uint64
	pagesProcessed    uint64
	pagesOCR          uint64
	pagesFailed       uint64
	chunksIndexed     uint64
	ingestDuration    float64

	// Search counters.
	searchesTotal  uint64
	searchErrors   uint64
	searchDuration float64

	// Chat counters.
	chatTotal              uint64
	chatErrors             uint64
	chatInsufficientGround uint64
	chatCacheHits          uint64
	chatDuration           float64

	// Embedding counters.
	embedCalls   uint64
	embedErrors  uint64
	embedRetries uint64

	startTime  time.Time
	durationMu sync.Mutex
}

var (
	global *Metrics
	once   sync.Once
)

// Get returns the global metrics instance.
func Get() *Metrics {
	once.Do(func() {
		global = &Metrics{startTime: time.Now()}
	})
	return global
}

// RecordIngest records one finished document ingest.
func (m *Metrics) RecordIngest(chunks int, duration time.Duration, err error) {
	if err != nil {
		atomic.AddUint64(&m.documentsFailed, 1)
		return
	}
	atomic.AddUint64(&m.documentsIngested, 1)
	atomic.AddUint64(&m.chunksIndexed, uint64(chunks))

	m.durationMu.Lock()
	m.ingestDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordPage records one extracted page.
func (m *Metrics) RecordPage(ocr bool, failed bool) {
	atomic.AddUint64(&m.pagesProcessed, 1)
	if ocr {
		atomic.AddUint64(&m.pagesOCR, 1)
	}
	if failed {
		atomic.AddUint64(&m.pagesFailed, 1)
	}
}

// RecordSearch records one search request.
func (m *Metrics) RecordSearch(duration time.Duration, err error) {
	atomic.AddUint64(&m.searchesTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.searchErrors, 1)
		return
	}

	m.durationMu.Lock()
	m.searchDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordChat records one chat request.
func (m *Metrics) RecordChat(duration time.Duration, cacheHit, insufficient bool, err error) {
	atomic.AddUint64(&m.chatTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.chatErrors, 1)
		return
	}
	if cacheHit {
		atomic.AddUint64(&m.chatCacheHits, 1)
	}
	if insufficient {
		atomic.AddUint64(&m.chatInsufficientGround, 1)
	}

	m.durationMu.Lock()
	m.chatDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordEmbedding records one embedding call.
func (m *Metrics) RecordEmbedding(err error) {
	atomic.AddUint64(&m.embedCalls, 1)
	if err != nil {
		atomic.AddUint64(&m.embedErrors, 1)
	}
}

// RecordEmbeddingRetry records one embedding retry.
func (m *Metrics) RecordEmbeddingRetry() {
	atomic.AddUint64(&m.embedRetries, 1)
}

// Export renders all metrics in Prometheus text format.
func (m *Metrics) Export(namespace string) string {
	var sb strings.Builder

	counter := func(name, help string, value uint64) {
		sb.WriteString(fmt.Sprintf("# HELP %s_%s %s\n", namespace, name, help))
		sb.WriteString(fmt.Sprintf("# TYPE %s_%s counter\n", namespace, name))
		sb.WriteString(fmt.Sprintf("%s_%s %d\n\n", namespace, name, value))
	}
	gauge := func(name, help string, value float64) {
		sb.WriteString(fmt.Sprintf("# HELP %s_%s %s\n", namespace, name, help))
		sb.WriteString(fmt.Sprintf("# TYPE %s_%s gauge\n", namespace, name))
		sb.WriteString(fmt.Sprintf("%s_%s %.6f\n\n", namespace, name, value))
	}

	counter("documents_ingested_total", "Total documents ingested successfully.", atomic.LoadUint64(&m.documentsIngested))
	counter("documents_failed_total", "Total documents that failed ingest.", atomic.LoadUint64(&m.documentsFailed))
	counter("pages_processed_total", "Total pages extracted.", atomic.LoadUint64(&m.pagesProcessed))
	counter("pages_ocr_total", "Total pages that went through OCR.", atomic.LoadUint64(&m.pagesOCR))
	counter("pages_failed_total", "Total pages that failed extraction.", atomic.LoadUint64(&m.pagesFailed))
	counter("chunks_indexed_total", "Total chunks indexed.", atomic.LoadUint64(&m.chunksIndexed))

	counter("searches_total", "Total search requests.", atomic.LoadUint64(&m.searchesTotal))
	counter("search_errors_total", "Total failed search requests.", atomic.LoadUint64(&m.searchErrors))

	counter("chat_total", "Total chat requests.", atomic.LoadUint64(&m.chatTotal))
	counter("chat_errors_total", "Total failed chat requests.", atomic.LoadUint64(&m.chatErrors))
	counter("chat_cache_hits_total", "Chat answers served from cache.", atomic.LoadUint64(&m.chatCacheHits))
	counter("chat_insufficient_grounding_total", "Chat requests answered with the fixed insufficient-grounding reply.", atomic.LoadUint64(&m.chatInsufficientGround))

	counter("embed_calls_total", "Total embedding calls.", atomic.LoadUint64(&m.embedCalls))
	counter("embed_errors_total", "Total failed embedding calls.", atomic.LoadUint64(&m.embedErrors))
	counter("embed_retries_total", "Total embedding retries.", atomic.LoadUint64(&m.embedRetries))

	m.durationMu.Lock()
	ingestDur := m.ingestDuration
	searchDur := m.searchDuration
	chatDur := m.chatDuration
	m.durationMu.Unlock()

	gauge("ingest_duration_seconds_total", "Total ingest duration.", ingestDur)
	gauge("search_duration_seconds_total", "Total search duration.", searchDur)
	gauge("chat_duration_seconds_total", "Total chat duration.", chatDur)
	gauge("uptime_seconds", "Process uptime.", time.Since(m.startTime).Seconds())

	return sb.String()
}

// Reset zeroes all counters; test helper.
func (m *Metrics) Reset() {
	atomic.StoreUint64(&m.documentsIngested, 0)
	atomic.StoreUint64(&m.documentsFailed, 0)
	atomic.StoreUint64(&m.pagesProcessed, 0)
	atomic.StoreUint64(&m.pagesOCR, 0)
	atomic.StoreUint64(&m.pagesFailed, 0)
	atomic.StoreUint64(&m.chunksIndexed, 0)
	atomic.StoreUint64(&m.searchesTotal, 0)
	atomic.StoreUint64(&m.searchErrors, 0)
	atomic.StoreUint64(&m.chatTotal, 0)
	atomic.StoreUint64(&m.chatErrors, 0)
	atomic.StoreUint64(&m.chatInsufficientGround, 0)
	atomic.StoreUint64(&m.chatCacheHits, 0)
	atomic.StoreUint64(&m.embedCalls, 0)
	atomic.StoreUint64(&m.embedErrors, 0)
	atomic.StoreUint64(&m.embedRetries, 0)

	m.durationMu.Lock()
	m.ingestDuration = 0
	m.searchDuration = 0
	m.chatDuration = 0
	m.durationMu.Unlock()
}
