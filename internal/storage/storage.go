// Package storage keeps a local journal of past predictions.
package storage

import (
	"crypto/sha1" //nolint:gosec // non-cryptographic id generation
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-vision-predictor/internal/domain"
)

// Store records prediction outcomes per image. It is a history, not a response cache.
type Store interface {
	Close() error
	Lookup(id string) (domain.PredictionRecord, bool, error)
	Record(rec domain.PredictionRecord) error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	RecordTTL       time.Duration
	CleanupInterval time.Duration
}

const (
	defaultRecordTTL       = 30 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

// RecordID derives the history key for an image classified by a model iteration.
func RecordID(projectID, iterationID, imageURL string) string {
	sum := sha1.Sum([]byte(projectID + "\x00" + iterationID + "\x00" + imageURL))
	return hex.EncodeToString(sum[:])
}

func normalizeOptions(opts Options) Options {
	if opts.RecordTTL <= 0 {
		opts.RecordTTL = defaultRecordTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error { return nil }
func (noopStore) Lookup(string) (domain.PredictionRecord, bool, error) {
	return domain.PredictionRecord{}, false, nil
}
func (noopStore) Record(domain.PredictionRecord) error { return nil }
