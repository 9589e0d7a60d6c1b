// Package chunk splits oversized paginated documents into ingestible
// page windows before they reach the staging area.
package chunk

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// DefaultPageLimit is the largest window the indexer accepts.
const DefaultPageLimit = 20

// Staging path prefixes the splitter reads from and writes to.
const (
	InputPrefix     = "input/"
	OutputPrefix    = "output/"
	ProcessedPrefix = "processed/"
)

// PageSource is a parsed paginated document.
type PageSource interface {
	PageCount() int
	// Window renders pages [start, end) as a standalone document.
	Window(start, end int) ([]byte, error)
}

// Parser turns raw bytes into a paginated document. A parse failure
// fails the whole operation; an unparseable document must never be
// staged as-is.
type Parser interface {
	Parse(data []byte) (PageSource, error)
}

// ObjectStore is the staging area the splitter works against.
type ObjectStore interface {
	GetObject(ctx context.Context, name string) ([]byte, error)
	PutObject(ctx context.Context, name string, data []byte) error
	DeleteObject(ctx context.Context, name string) error
	ListObjects(ctx context.Context, prefix string) ([]string, error)
}

// window is a half-open page range.
type window struct {
	start, end int
}

// windows computes consecutive page windows of at most limit pages.
// total <= limit yields a single full-document window.
func windows(total, limit int) []window {
	if total <= limit {
		return []window{{0, total}}
	}
	out := make([]window, 0, (total+limit-1)/limit)
	for start := 0; start < total; start += limit {
		end := min(start+limit, total)
		out = append(out, window{start, end})
	}
	return out
}

// Service splits staged input documents.
type Service struct {
	store  ObjectStore
	parser Parser
	limit  int
	logger *zap.Logger
}

// New creates a splitter. limit <= 0 falls back to DefaultPageLimit.
func New(store ObjectStore, parser Parser, limit int, logger *zap.Logger) *Service {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	return &Service{store: store, parser: parser, limit: limit, logger: logger}
}

// Process handles one uploaded document under input/. Documents within
// the page limit move to processed/ unchanged; larger ones are split
// into numbered parts under output/. The original is removed once its
// replacement objects are written.
func (s *Service) Process(ctx context.Context, name string) error {
	key := InputPrefix + name

	data, err := s.store.GetObject(ctx, key)
	if err != nil {
		return fmt.Errorf("read input %s: %w", name, err)
	}

	src, err := s.parser.Parse(data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}

	total := src.PageCount()
	if total <= s.limit {
		return s.moveToProcessed(ctx, name, key, data)
	}

	base, ext := splitExt(name)
	parts := windows(total, s.limit)
	written := make([]string, 0, len(parts))
	for i, w := range parts {
		chunk, err := src.Window(w.start, w.end)
		if err != nil {
			s.removeParts(ctx, written)
			return fmt.Errorf("render pages %d-%d of %s: %w", w.start+1, w.end, name, err)
		}
		partName := fmt.Sprintf("%s%s_part_%d%s", OutputPrefix, base, i+1, ext)
		if err := s.store.PutObject(ctx, partName, chunk); err != nil {
			s.removeParts(ctx, written)
			return fmt.Errorf("write %s: %w", partName, err)
		}
		written = append(written, partName)
	}

	if err := s.store.DeleteObject(ctx, key); err != nil {
		return fmt.Errorf("remove input %s: %w", name, err)
	}

	s.logger.Info("split document",
		zap.String("name", name),
		zap.Int("pages", total),
		zap.Int("parts", len(parts)))
	return nil
}

// removeParts rolls back part objects written before a failure, so the
// next sweep re-splits the input from a clean slate instead of mixing
// stale and fresh parts.
func (s *Service) removeParts(ctx context.Context, names []string) {
	for _, name := range names {
		if err := s.store.DeleteObject(ctx, name); err != nil {
			s.logger.Warn("leftover part not removed",
				zap.String("name", name), zap.Error(err))
		}
	}
}

func (s *Service) moveToProcessed(ctx context.Context, name, key string, data []byte) error {
	if err := s.store.PutObject(ctx, ProcessedPrefix+name, data); err != nil {
		return fmt.Errorf("move %s to processed: %w", name, err)
	}
	if err := s.store.DeleteObject(ctx, key); err != nil {
		return fmt.Errorf("remove input %s: %w", name, err)
	}
	return nil
}

// Sweep processes every document waiting under input/. One bad
// document does not block the rest; its error is logged and the
// original stays under input/ for inspection.
func (s *Service) Sweep(ctx context.Context) (processed int, err error) {
	names, err := s.store.ListObjects(ctx, InputPrefix)
	if err != nil {
		return 0, fmt.Errorf("list input documents: %w", err)
	}

	for _, key := range names {
		name := strings.TrimPrefix(key, InputPrefix)
		if err := s.Process(ctx, name); err != nil {
			s.logger.Warn("split failed", zap.String("name", name), zap.Error(err))
			continue
		}
		processed++
	}
	return processed, nil
}

func splitExt(name string) (base, ext string) {
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[:i], name[i:]
	}
	return name, ""
}
