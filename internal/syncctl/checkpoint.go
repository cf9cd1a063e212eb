package syncctl

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/evandiewald/helium-arango-etl/pkg/errs"
	"github.com/evandiewald/helium-arango-etl/pkg/models"
)

const checkpointBucket = "sync_checkpoints"

// CheckpointStore persists the controller's (phase, sync_height,
// current_height, current_time) tuple so the daemon resumes mid-backfill
// after a restart instead of replaying INIT (SPEC_FULL.md §2 item 9).
// This is a resume optimization, not a correctness requirement — I1
// already makes DYNAMIC_SYNC safe to replay from scratch.
type CheckpointStore struct {
	db *bbolt.DB
}

// NewCheckpointStore opens (creating if necessary) a BoltDB file at path.
func NewCheckpointStore(path string) (*CheckpointStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, errs.New(errs.KindConfig, "syncctl.NewCheckpointStore", fmt.Errorf("open: %w", err))
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(checkpointBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, errs.New(errs.KindConfig, "syncctl.NewCheckpointStore", fmt.Errorf("create bucket: %w", err))
	}

	return &CheckpointStore{db: db}, nil
}

// Save persists checkpoint, stamping UpdatedAtUnix.
func (s *CheckpointStore) Save(ctx context.Context, checkpoint models.Checkpoint) error {
	checkpoint.UpdatedAtUnix = time.Now().Unix()

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(checkpointBucket))
		data, err := json.Marshal(checkpoint)
		if err != nil {
			return err
		}
		return b.Put([]byte(checkpoint.ServiceName), data)
	})
}

// Load returns the persisted checkpoint for serviceName, or
// (nil, nil) if none exists yet.
func (s *CheckpointStore) Load(ctx context.Context, serviceName string) (*models.Checkpoint, error) {
	var checkpoint models.Checkpoint
	found := false

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(checkpointBucket))
		data := b.Get([]byte(serviceName))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &checkpoint)
	})
	if err != nil {
		return nil, errs.New(errs.KindConfig, "syncctl.CheckpointStore.Load", err)
	}
	if !found {
		return nil, nil
	}
	return &checkpoint, nil
}

// Close closes the underlying BoltDB file.
func (s *CheckpointStore) Close() error {
	return s.db.Close()
}
