// Package audit appends one row per terminal tip outcome, asynchronously.
// Audit is best effort: it never blocks or fails a dispatch.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/montip/tipbot-middleware/internal/metrics"
	"github.com/montip/tipbot-middleware/pkg/config"
	"github.com/montip/tipbot-middleware/pkg/tipdb"
)

// Store persists audit rows.
type Store interface {
	AppendAudit(ctx context.Context, record *tipdb.AuditRecord) error
}

// Writer buffers audit records on a channel and writes them from a single
// goroutine. When the buffer is full the record is dropped and counted.
type Writer struct {
	store        Store
	logger       *zap.Logger
	writeTimeout time.Duration

	records chan *tipdb.AuditRecord
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewWriter creates an audit writer.
func NewWriter(store Store, cfg *config.AuditConfig, logger *zap.Logger) *Writer {
	return &Writer{
		store:        store,
		logger:       logger,
		writeTimeout: cfg.WriteTimeout,
		records:      make(chan *tipdb.AuditRecord, cfg.BufferSize),
		stopCh:       make(chan struct{}),
	}
}

// Start launches the writer goroutine.
func (w *Writer) Start() {
	w.wg.Add(1)
	go w.run()
}

// Stop drains the buffer and stops the writer.
func (w *Writer) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.logger.Info("Audit writer stopped")
}

// Record enqueues an audit record without blocking. The record gets an ID and
// timestamp here so callers stay oblivious to storage details.
func (w *Writer) Record(record *tipdb.AuditRecord) {
	record.ID = uuid.NewString()
	record.CreatedAt = time.Now().UTC()

	select {
	case w.records <- record:
	default:
		metrics.AuditDropped.Inc()
		w.logger.Warn("Audit buffer full, dropping record",
			zap.String("event_id", record.EventID),
			zap.String("status", record.Status))
	}
}

func (w *Writer) run() {
	defer w.wg.Done()

	for {
		select {
		case record := <-w.records:
			w.write(record)
		case <-w.stopCh:
			// Drain whatever is buffered before exiting.
			for {
				select {
				case record := <-w.records:
					w.write(record)
				default:
					return
				}
			}
		}
	}
}

func (w *Writer) write(record *tipdb.AuditRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), w.writeTimeout)
	defer cancel()

	if err := w.store.AppendAudit(ctx, record); err != nil {
		w.logger.Error("Failed to write audit record",
			zap.String("event_id", record.EventID),
			zap.Error(err))
	}
}
