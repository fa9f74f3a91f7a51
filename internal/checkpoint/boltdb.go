package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"go.etcd.io/bbolt"
)

const (
	bucketName = "checkpoints"
)

// BoltDBStore implements Store using BoltDB
type BoltDBStore struct {
	db     *bbolt.DB
	logger zerolog.Logger
}

// NewBoltDBStore opens (or creates) the checkpoint database
func NewBoltDBStore(dbPath string, logger zerolog.Logger) (*BoltDBStore, error) {
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		// A timeout here means another run holds the file lock
		return nil, fmt.Errorf("failed to open boltdb (file may be locked by another process): %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	logger.Debug().
		Str("db_path", dbPath).
		Msg("BoltDB checkpoint store initialized")

	return &BoltDBStore{db: db, logger: logger}, nil
}

// Get retrieves the checkpoint for a given file
func (s *BoltDBStore) Get(ctx context.Context, mode, filePath string) (Checkpoint, error) {
	var cp Checkpoint

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}

		val := b.Get([]byte(MakeKey(mode, filePath)))
		if val == nil {
			return nil
		}

		return json.Unmarshal(val, &cp)
	})

	if err != nil {
		return Checkpoint{}, fmt.Errorf("failed to get checkpoint: %w", err)
	}

	return cp, nil
}

// Set stores the checkpoint for a given file
func (s *BoltDBStore) Set(ctx context.Context, mode, filePath string, cp Checkpoint) error {
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now().UTC()
	}

	val, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}

		return b.Put([]byte(MakeKey(mode, filePath)), val)
	})

	if err != nil {
		return fmt.Errorf("failed to set checkpoint: %w", err)
	}

	s.logger.Debug().
		Str("mode", mode).
		Str("file_path", filePath).
		Uint64("documents", cp.Documents).
		Msg("Checkpoint updated")

	return nil
}

// Delete removes the checkpoint for a given file
func (s *BoltDBStore) Delete(ctx context.Context, mode, filePath string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}

		return b.Delete([]byte(MakeKey(mode, filePath)))
	})

	if err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}

	return nil
}

// List returns all stored checkpoints
func (s *BoltDBStore) List(ctx context.Context) (map[string]Checkpoint, error) {
	result := make(map[string]Checkpoint)

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}

		return b.ForEach(func(k, v []byte) error {
			var cp Checkpoint
			if err := json.Unmarshal(v, &cp); err != nil {
				s.logger.Warn().
					Err(err).
					Str("key", string(k)).
					Msg("Skipping unreadable checkpoint")
				return nil
			}
			result[string(k)] = cp
			return nil
		})
	})

	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}

	return result, nil
}

// Close closes the BoltDB database
func (s *BoltDBStore) Close() error {
	s.logger.Debug().Msg("Closing BoltDB checkpoint store")
	return s.db.Close()
}

// MakeKey creates a composite key from the run mode and the absolute file path
func MakeKey(mode, filePath string) string {
	if abs, err := filepath.Abs(filePath); err == nil {
		filePath = abs
	}
	return fmt.Sprintf("%s:%s", mode, filePath)
}
