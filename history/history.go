// Package history keeps a local record of experiment runs in a small
// embedded database, so past runs can be listed without touching the
// service or walking experiment directories.
package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

const runsBucket = "runs"

// Record is one recorded experiment run. Experiment identifiers start
// with a timestamp, so records sort chronologically by ID.
type Record struct {
	ID                string    `json:"id"`
	Dir               string    `json:"dir"`
	Core              string    `json:"core"`
	Workloads         []string  `json:"workloads"`
	Status            string    `json:"status"`
	TotalCycles       int64     `json:"total_cycles,omitempty"`
	TotalInstructions int64     `json:"total_instructions,omitempty"`
	StartedAt         time.Time `json:"started_at"`
}

// Store is a run history database. It holds the underlying file open;
// callers own Close.
type Store struct {
	db   *bbolt.DB
	path string
}

// Open opens the history database at path, creating the file and its
// parent directory on first use.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrapf(err, "creating history directory for '%s'", path)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening history database '%s'", path)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(runsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "initializing history database")
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close releases the database file.
func (s *Store) Close() error {
	return errors.Wrap(s.db.Close(), "closing history database")
}

// Save records a run, replacing any earlier record with the same ID.
func (s *Store) Save(r Record) error {
	if r.ID == "" {
		return errors.New("history records must have an ID")
	}

	value, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "marshalling history record")
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(runsBucket)).Put([]byte(r.ID), value)
	})
	return errors.Wrapf(err, "saving history record '%s'", r.ID)
}

// List returns all recorded runs, newest first.
func (s *Store) List() ([]Record, error) {
	var records []Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(runsBucket)).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			r := Record{}
			if err := json.Unmarshal(v, &r); err != nil {
				return errors.Wrapf(err, "parsing history record '%s'", string(k))
			}
			records = append(records, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Get returns the record with the given ID, or nil if none is recorded.
func (s *Store) Get(id string) (*Record, error) {
	var record *Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		value := tx.Bucket([]byte(runsBucket)).Get([]byte(id))
		if value == nil {
			return nil
		}
		record = &Record{}
		return errors.Wrapf(json.Unmarshal(value, record), "parsing history record '%s'", id)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Clear deletes every recorded run.
func (s *Store) Clear() error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(runsBucket)); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists([]byte(runsBucket))
		return err
	})
	return errors.Wrap(err, "clearing run history")
}
