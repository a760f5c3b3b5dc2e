package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/samvad-hq/samvad-vision-predictor/internal/domain"
	bolt "go.etcd.io/bbolt"
)

func openTestBolt(t *testing.T, opts Options) *boltStore {
	t.Helper()
	storeRaw, err := openBolt(filepath.Join(t.TempDir(), "nested", "history.db"), normalizeOptions(opts))
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBoltStoreRecordsAndLooksUp(t *testing.T) {
	store := openTestBolt(t, Options{RecordTTL: time.Hour, CleanupInterval: time.Hour})

	id := RecordID("proj", "iter", "https://example.com/a.png")
	if _, found, err := store.Lookup(id); err != nil || found {
		t.Fatalf("expected empty history, found=%v err=%v", found, err)
	}

	rec := domain.PredictionRecord{
		ID:             id,
		ImageURL:       "https://example.com/a.png",
		ProjectID:      "proj",
		IterationID:    "iter",
		TopTag:         "dress",
		TopProbability: 0.91,
		PredictedAt:    time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := store.Record(rec); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, found, err := store.Lookup(id)
	if err != nil || !found {
		t.Fatalf("expected record, found=%v err=%v", found, err)
	}
	if got.TopTag != "dress" || got.TopProbability != 0.91 || !got.PredictedAt.Equal(rec.PredictedAt) {
		t.Fatalf("unexpected record %#v", got)
	}
}

func TestBoltStoreExpiresRecords(t *testing.T) {
	store := openTestBolt(t, Options{RecordTTL: time.Minute, CleanupInterval: time.Hour})
	now := time.Now()
	store.now = func() time.Time { return now }

	if err := store.Record(domain.PredictionRecord{ID: "a"}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, found, err := store.Lookup("a"); err != nil || found {
		t.Fatalf("expected expired record, found=%v err=%v", found, err)
	}
}

func TestBoltStoreCleanupSweepsExpired(t *testing.T) {
	store := openTestBolt(t, Options{RecordTTL: time.Minute, CleanupInterval: time.Minute})
	now := time.Now()
	store.now = func() time.Time { return now }

	if err := store.Record(domain.PredictionRecord{ID: "old"}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	now = now.Add(10 * time.Minute)
	if err := store.Record(domain.PredictionRecord{ID: "new"}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	var keys []string
	if err := store.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(predictionBucket)).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
	if len(keys) != 1 || keys[0] != "new" {
		t.Fatalf("expected only the new record to remain, got %v", keys)
	}
}

func TestBoltStoreRejectsEmptyID(t *testing.T) {
	store := openTestBolt(t, Options{})
	if err := store.Record(domain.PredictionRecord{}); err == nil {
		t.Fatalf("expected error for empty id")
	}
}

func TestRecordIDIsStableAndScoped(t *testing.T) {
	a := RecordID("p", "i1", "u")
	if a != RecordID("p", "i1", "u") {
		t.Fatalf("RecordID not stable")
	}
	if a == RecordID("p", "i2", "u") {
		t.Fatalf("RecordID must differ per iteration")
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore("none", "", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.Record(domain.PredictionRecord{ID: "x"}); err != nil {
		t.Fatalf("noop store Record: %v", err)
	}
	if _, found, _ := store.Lookup("x"); found {
		t.Fatalf("noop store must not remember records")
	}
}

func TestNewStoreRejectsUnknownType(t *testing.T) {
	if _, err := NewStore("redis", "", Options{}); err == nil {
		t.Fatalf("expected unsupported storage error")
	}
	if _, err := NewStore("bbolt", " ", Options{}); err == nil {
		t.Fatalf("expected missing path error")
	}
}
