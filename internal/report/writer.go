package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Config controls how a Writer renders.
type Config struct {
	Format        Format
	PriorityBonus int
}

// Writer renders reports and stores them through a BlobStore.
type Writer struct {
	store  BlobStore
	cfg    Config
	logger *zap.Logger
}

var _ Sink = (*Writer)(nil)

// NewWriter validates cfg. A non-positive PriorityBonus falls back to
// DefaultPriorityBonus.
func NewWriter(store BlobStore, cfg Config, logger *zap.Logger) (*Writer, error) {
	if store == nil {
		return nil, errors.New("report writer requires a blob store")
	}
	format, err := ParseFormat(string(cfg.Format))
	if err != nil {
		return nil, err
	}
	cfg.Format = format
	if cfg.PriorityBonus <= 0 {
		cfg.PriorityBonus = DefaultPriorityBonus
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{store: store, cfg: cfg, logger: logger}, nil
}

// Format is the format this writer produces.
func (w *Writer) Format() Format {
	return w.cfg.Format
}

// Write renders r and stores it under ObjectName.
func (w *Writer) Write(ctx context.Context, r Report) (string, error) {
	var buf bytes.Buffer
	if err := Render(&buf, r, w.cfg.Format, w.cfg.PriorityBonus); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	name := ObjectName(r, w.cfg.Format)
	size := buf.Len()
	uri, err := w.store.PutObject(ctx, name, w.cfg.Format.ContentType(), &buf)
	if err != nil {
		return "", fmt.Errorf("store report %s: %w", name, err)
	}
	w.logger.Info("report written",
		zap.String("uri", uri),
		zap.String("format", string(w.cfg.Format)),
		zap.Int("records", r.Total()),
		zap.Int("bytes", size),
	)
	return uri, nil
}
