// Package docintel assembles the document intelligence server.
package docintel

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	logopts "github.com/kart-io/docintel/pkg/options/logger"
	milvusopts "github.com/kart-io/docintel/pkg/options/milvus"
	ollamaopts "github.com/kart-io/docintel/pkg/options/ollama"
	redisopts "github.com/kart-io/docintel/pkg/options/redis"
)

// Options contains all server options.
type Options struct {
	// Addr is the HTTP listen address.
	Addr string `json:"addr" mapstructure:"addr"`

	// DataDir holds the SQLite database.
	DataDir string `json:"data-dir" mapstructure:"data-dir"`

	// WatchDir, when set, is scanned for dropped files to ingest.
	WatchDir string `json:"watch-dir" mapstructure:"watch-dir"`

	// LocalEmbedder switches to the deterministic offline embedder
	// instead of Ollama.
	LocalEmbedder bool `json:"local-embedder" mapstructure:"local-embedder"`

	// OCRLanguage is the Tesseract language.
	OCRLanguage string `json:"ocr-language" mapstructure:"ocr-language"`

	// ForceOCRPages runs OCR on the first N pages of digital PDFs so
	// preprocessing snapshots are available.
	ForceOCRPages int `json:"force-ocr-pages" mapstructure:"force-ocr-pages"`

	// DigitalMinChars is the minimum trimmed length for a page's embedded
	// text layer to win over OCR.
	DigitalMinChars int `json:"digital-min-chars" mapstructure:"digital-min-chars"`

	// SemanticWeight is the semantic share in hybrid search fusion.
	SemanticWeight float64 `json:"semantic-weight" mapstructure:"semantic-weight"`

	// PageWorkers bounds per-document page extraction parallelism.
	PageWorkers int `json:"page-workers" mapstructure:"page-workers"`

	// ChunkSize and ChunkOverlap configure chunking, in characters.
	ChunkSize    int `json:"chunk-size" mapstructure:"chunk-size"`
	ChunkOverlap int `json:"chunk-overlap" mapstructure:"chunk-overlap"`

	// CacheEnabled turns on the Redis chat answer cache.
	CacheEnabled bool `json:"cache-enabled" mapstructure:"cache-enabled"`

	// CacheTTL is the chat answer expiry.
	CacheTTL time.Duration `json:"cache-ttl" mapstructure:"cache-ttl"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`

	Log    *logopts.Options    `json:"log" mapstructure:"log"`
	Ollama *ollamaopts.Options `json:"ollama" mapstructure:"ollama"`
	Milvus *milvusopts.Options `json:"milvus" mapstructure:"milvus"`
	Redis  *redisopts.Options  `json:"redis" mapstructure:"redis"`
}

// NewOptions creates Options with defaults.
func NewOptions() *Options {
	return &Options{
		Addr:            ":8000",
		DataDir:         "./data",
		OCRLanguage:     "eng",
		ForceOCRPages:   3,
		DigitalMinChars: 50,
		SemanticWeight:  0.7,
		PageWorkers:     4,
		ChunkSize:       500,
		ChunkOverlap:    50,
		CacheEnabled:    false,
		CacheTTL:        time.Hour,
		ShutdownTimeout: 10 * time.Second,
		Log:             logopts.NewOptions(),
		Ollama:          ollamaopts.NewOptions(),
		Milvus:          milvusopts.NewOptions(),
		Redis:           redisopts.NewOptions(),
	}
}

// AddFlags adds all server flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Addr, "addr", o.Addr, "HTTP listen address.")
	fs.StringVar(&o.DataDir, "data-dir", o.DataDir, "Directory for the document database.")
	fs.StringVar(&o.WatchDir, "watch-dir", o.WatchDir, "Directory watched for dropped files to ingest (disabled when empty).")
	fs.BoolVar(&o.LocalEmbedder, "local-embedder", o.LocalEmbedder, "Use the deterministic local embedder instead of Ollama.")
	fs.StringVar(&o.OCRLanguage, "ocr-language", o.OCRLanguage, "Tesseract OCR language.")
	fs.IntVar(&o.ForceOCRPages, "force-ocr-pages", o.ForceOCRPages, "Run OCR on the first N pages of digital PDFs.")
	fs.IntVar(&o.DigitalMinChars, "digital-min-chars", o.DigitalMinChars, "Minimum embedded text length for a page to count as digital.")
	fs.Float64Var(&o.SemanticWeight, "semantic-weight", o.SemanticWeight, "Semantic share in hybrid search fusion, in [0, 1].")
	fs.IntVar(&o.PageWorkers, "page-workers", o.PageWorkers, "Per-document page extraction workers.")
	fs.IntVar(&o.ChunkSize, "chunk-size", o.ChunkSize, "Chunk size in characters.")
	fs.IntVar(&o.ChunkOverlap, "chunk-overlap", o.ChunkOverlap, "Chunk overlap in characters.")
	fs.BoolVar(&o.CacheEnabled, "cache-enabled", o.CacheEnabled, "Enable the Redis chat answer cache.")
	fs.DurationVar(&o.CacheTTL, "cache-ttl", o.CacheTTL, "Chat answer cache TTL.")
	fs.DurationVar(&o.ShutdownTimeout, "shutdown-timeout", o.ShutdownTimeout, "Graceful shutdown timeout.")

	o.Log.AddFlags(fs)
	o.Ollama.AddFlags(fs)
	o.Milvus.AddFlags(fs)
	o.Redis.AddFlags(fs)
}

// Validate validates all options.
func (o *Options) Validate() []error {
	var errs []error
	if o.Addr == "" {
		errs = append(errs, fmt.Errorf("addr is required"))
	}
	if o.DataDir == "" {
		errs = append(errs, fmt.Errorf("data-dir is required"))
	}
	if o.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk-size must be positive"))
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		errs = append(errs, fmt.Errorf("chunk-overlap must be in [0, chunk-size)"))
	}
	if o.PageWorkers <= 0 {
		errs = append(errs, fmt.Errorf("page-workers must be positive"))
	}
	if o.SemanticWeight < 0 || o.SemanticWeight > 1 {
		errs = append(errs, fmt.Errorf("semantic-weight must be in [0, 1]"))
	}
	if err := o.Log.Validate(); err != nil {
		errs = append(errs, err)
	}
	if !o.LocalEmbedder {
		errs = append(errs, o.Ollama.Validate()...)
	}
	errs = append(errs, o.Milvus.Validate()...)
	if o.CacheEnabled {
		errs = append(errs, o.Redis.Validate()...)
	}
	return errs
}
