package vectorindex

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/kbgate/internal/domain"
)

// StartIngestion drains the staging area into the vector index: each
// staged hash is embedded and written under the index key space, then
// removed from staging. Per-document failures are logged and skipped so
// one bad document cannot stall the sync. Returns the ingestion job id.
func (r *Repo) StartIngestion(ctx context.Context) (string, error) {
	jobID := uuid.NewString()

	keys, err := r.store.Scan(ctx, domain.StagingDocPrefix+"*")
	if err != nil {
		return "", fmt.Errorf("scan staging: %w", err)
	}

	log := r.logger.With(zap.String("job_id", jobID))
	indexed := 0

	for _, key := range keys {
		docID := strings.TrimPrefix(key, domain.StagingDocPrefix)
		if err := r.indexStaged(ctx, key, docID); err != nil {
			log.Warn("skipping staged document",
				zap.String("doc_id", docID), zap.Error(err))
			continue
		}
		indexed++
	}

	log.Info("ingestion complete",
		zap.Int("staged", len(keys)), zap.Int("indexed", indexed))
	return jobID, nil
}

func (r *Repo) indexStaged(ctx context.Context, stagingKey, docID string) error {
	fields, err := r.store.HGetAll(ctx, stagingKey)
	if err != nil {
		return fmt.Errorf("read staged doc: %w", err)
	}
	content, ok := fields["__content"]
	if !ok || content == "" {
		return fmt.Errorf("staged doc has no content")
	}

	vector, err := r.embedder.Embed(ctx, content)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}

	fields["__vector"] = vectorField(vector)
	docKey := fmt.Sprintf("%s%s:%s", domain.KeyPrefix, r.indexName, docID)
	if err := r.store.HSet(ctx, docKey, fields); err != nil {
		return fmt.Errorf("write doc: %w", err)
	}

	if err := r.store.Del(ctx, stagingKey); err != nil {
		return fmt.Errorf("clear staging: %w", err)
	}
	return nil
}

// vectorField serializes a vector into the binary hash field layout the
// index schema expects (little-endian float32).
func vectorField(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
