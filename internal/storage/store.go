// Package storage defines the Record Store Adapter contract and selects one of
// the interchangeable backends.
//
// Every backend is fail-open: an unreachable or unreadable store reads as empty
// and write failures are logged and skipped. The only error that crosses the
// adapter boundary is a malformed incoming payload (domain.ErrMalformedRecord).
//
// Adapters perform no locking or versioning. Two processes writing the same
// store concurrently can lose updates: last write wins for the whole file on
// the tabular backend and per record on the document and sqlite backends.
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/aristath/lotofacil/internal/domain"
	"github.com/aristath/lotofacil/internal/storage/document"
	"github.com/aristath/lotofacil/internal/storage/sqlstore"
	"github.com/aristath/lotofacil/internal/storage/tabular"
	"github.com/aristath/lotofacil/internal/storage/telemetry"
	"github.com/rs/zerolog"
)

// Store is the capability shared by every backend.
type Store interface {
	// Name identifies the backend in logs and metrics.
	Name() string
	// Load returns the stored draws sorted by draw_id descending, or an empty
	// collection if the store is absent or unreadable.
	Load(ctx context.Context) []domain.DrawRecord
	// ReconcileAndPersist merges incoming into existing and persists the result.
	// A persistence failure is logged and the merged collection still returned;
	// persisted is false in that case and true when nothing needed writing.
	ReconcileAndPersist(ctx context.Context, existing []domain.DrawRecord, incoming []domain.RawDraw) (merged []domain.DrawRecord, persisted bool, err error)
	// SavePrediction inserts rec unless an equal combination is already stored.
	// It reports whether a new record was written.
	SavePrediction(ctx context.Context, rec domain.PredictionRecord) bool
	// LoadPredictions returns stored predictions, newest first.
	LoadPredictions(ctx context.Context) []domain.PredictionRecord
	// Snapshot streams a point-in-time copy of the store for backups.
	Snapshot(ctx context.Context, w io.Writer) error
	Close() error
}

// Backend names accepted by New. "excel" and "database" match the legacy
// command line vocabulary.
const (
	BackendExcel    = "excel"
	BackendCSV      = "csv"
	BackendDocument = "database"
	BackendSQLite   = "sqlite"
)

// Backends lists the accepted backend names.
var Backends = []string{BackendExcel, BackendCSV, BackendDocument, BackendSQLite}

// Config selects and configures a backend.
type Config struct {
	Backend  string
	DataDir  string
	Workbook string // file name for the tabular backends
	Rules    domain.Rules
	Failures telemetry.FailureRecorder
}

// New opens the configured backend. It fails only for an unknown backend name;
// connectivity problems are absorbed by the backend itself.
func New(cfg Config, log zerolog.Logger) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case BackendExcel, "xlsx":
		return tabular.New(tabular.Config{
			Path:     filepath.Join(cfg.DataDir, withExt(cfg.Workbook, ".xlsx")),
			Rules:    cfg.Rules,
			Failures: cfg.Failures,
		}, log), nil
	case BackendCSV:
		return tabular.New(tabular.Config{
			Path:     filepath.Join(cfg.DataDir, withExt(cfg.Workbook, ".csv")),
			Rules:    cfg.Rules,
			Failures: cfg.Failures,
		}, log), nil
	case BackendDocument, "document", "badger":
		return document.Open(document.Config{
			Dir:      filepath.Join(cfg.DataDir, "documents"),
			Rules:    cfg.Rules,
			Failures: cfg.Failures,
		}, log), nil
	case BackendSQLite:
		return sqlstore.Open(sqlstore.Config{
			Path:     filepath.Join(cfg.DataDir, "lotofacil.db"),
			Rules:    cfg.Rules,
			Failures: cfg.Failures,
		}, log), nil
	}
	return nil, fmt.Errorf("invalid storage option %q, use one of %v", cfg.Backend, Backends)
}

// withExt swaps the workbook extension so one configured name serves both
// tabular formats.
func withExt(name, ext string) string {
	if name == "" {
		name = "resultados_lotofacil"
	}
	return strings.TrimSuffix(name, filepath.Ext(name)) + ext
}
