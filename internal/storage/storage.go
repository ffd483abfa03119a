// Package storage persists the trained crop classifier. The artifact is a
// single BoltDB file holding one JSON-encoded model, so the trainer and the
// predictor agree on its format through this package alone.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"crop-advisor/internal/ml"

	"github.com/rs/zerolog/log"
	"go.etcd.io/bbolt"
)

const (
	modelsBucket = "models"          // Bucket holding the model artifact
	modelKey     = "crop_classifier" // Key of the active model
)

// ErrModelNotFound is returned when the artifact file or its model entry is absent.
var ErrModelNotFound = errors.New("model artifact not found")

// Store wraps the BoltDB file holding the model artifact.
type Store struct {
	db *bbolt.DB
}

// New opens the artifact file for writing, creating it and its parent
// directory when needed.
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create model directory: %w", err)
		}
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(modelsBucket)); err != nil {
			return fmt.Errorf("create models bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Open opens an existing artifact file read-only. It never creates the file.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, path)
		}
		return nil, fmt.Errorf("stat model file: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection gracefully.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveModel replaces the stored artifact.
func (s *Store) SaveModel(model *ml.Model) error {
	data, err := model.Marshal()
	if err != nil {
		return fmt.Errorf("marshal model: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(modelsBucket))
		if err != nil {
			return fmt.Errorf("create models bucket: %w", err)
		}
		return b.Put([]byte(modelKey), data)
	})
}

// LoadModel reads and validates the stored artifact.
func (s *Store) LoadModel() (*ml.Model, error) {
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(modelsBucket))
		if b == nil {
			return ErrModelNotFound
		}
		v := b.Get([]byte(modelKey))
		if v == nil {
			return ErrModelNotFound
		}
		// v is only valid inside the transaction
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return ml.UnmarshalModel(data)
}

// SaveModel writes model to the artifact file at path.
func SaveModel(path string, model *ml.Model) error {
	store, err := New(path)
	if err != nil {
		return err
	}

	if err := store.SaveModel(model); err != nil {
		store.Close()
		return err
	}
	return store.Close()
}

// LoadModel reads the artifact file at path. A missing file yields
// ErrModelNotFound; an unreadable or invalid one yields a descriptive error.
func LoadModel(path string) (*ml.Model, error) {
	store, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	return store.LoadModel()
}

// LoadForServing loads the artifact for the predictor service. Any failure
// is logged once and yields nil so the service can start without a model.
func LoadForServing(path string) *ml.Model {
	model, err := LoadModel(path)
	switch {
	case errors.Is(err, ErrModelNotFound):
		log.Warn().Str("path", path).Msg("Model artifact not found, run the trainer first. Predictions will fail until it exists")
		return nil
	case err != nil:
		log.Error().Err(err).Str("path", path).Msg("Error loading model")
		return nil
	}

	log.Info().
		Str("path", path).
		Strs("classes", model.Classes()).
		Time("trained_at", model.TrainedAt).
		Msg("Model loaded")
	return model
}
