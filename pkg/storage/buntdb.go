// Package storage keeps the history of chart builds
package storage

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/raykavin/chartshot/pkg/core"
	"github.com/raykavin/chartshot/pkg/logger"
	"github.com/tidwall/buntdb"
)

const createdIndex = "created_index"

// BuntStorage implements core.HistoryStorage using BuntDB
type BuntStorage struct {
	lastID int64
	db     *buntdb.DB
	log    logger.Logger
	now    func() time.Time
}

// FromMemory creates an in-memory storage
func FromMemory() (*BuntStorage, error) {
	return NewBuntStorage(":memory:")
}

// FromFile creates a file-based storage
func FromFile(file string) (*BuntStorage, error) {
	return NewBuntStorage(file)
}

// NewBuntStorage opens the database and resumes IDs after the highest stored one
func NewBuntStorage(sourceFile string) (*BuntStorage, error) {
	db, err := buntdb.Open(sourceFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open buntdb: %w", err)
	}

	err = db.CreateIndex(createdIndex, "*", createdLess)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	storage := &BuntStorage{
		db:  db,
		log: logger.Nop(),
		now: time.Now,
	}

	err = db.View(func(tx *buntdb.Tx) error {
		return tx.Ascend("", func(key, _ string) bool {
			if id, err := strconv.ParseInt(key, 10, 64); err == nil && id > storage.lastID {
				storage.lastID = id
			}
			return true
		})
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to scan records: %w", err)
	}

	return storage, nil
}

// createdLess orders records by creation time. RFC3339Nano strings do not
// sort lexically.
func createdLess(a, b string) bool {
	return createdAt(a).Before(createdAt(b))
}

func createdAt(value string) time.Time {
	var record struct {
		CreatedAt time.Time `json:"created_at"`
	}
	_ = json.Unmarshal([]byte(value), &record)
	return record.CreatedAt
}

// WithLogger sets the storage logger
func (b *BuntStorage) WithLogger(log logger.Logger) *BuntStorage {
	b.log = log
	return b
}

func (b *BuntStorage) getID() int64 {
	return atomic.AddInt64(&b.lastID, 1)
}

// CreateRecord stores a new build record
func (b *BuntStorage) CreateRecord(record *core.BuildRecord) error {
	return b.db.Update(func(tx *buntdb.Tx) error {
		record.ID = b.getID()
		if record.CreatedAt.IsZero() {
			record.CreatedAt = b.now().UTC()
		}

		content, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}

		_, _, err = tx.Set(strconv.FormatInt(record.ID, 10), string(content), nil)
		if err != nil {
			return fmt.Errorf("failed to store record: %w", err)
		}

		return nil
	})
}

// Records retrieves records in creation order, keeping those that pass every filter
func (b *BuntStorage) Records(filters ...core.RecordFilter) ([]*core.BuildRecord, error) {
	records := make([]*core.BuildRecord, 0)

	err := b.db.View(func(tx *buntdb.Tx) error {
		err := tx.Ascend(createdIndex, func(key, value string) bool {
			var record core.BuildRecord
			if err := json.Unmarshal([]byte(value), &record); err != nil {
				b.log.WithError(err).WithField("key", key).Warn("skipping unreadable record")
				return true
			}

			for _, filter := range filters {
				if !filter(record) {
					return true
				}
			}

			records = append(records, &record)
			return true
		})

		if err != nil {
			return fmt.Errorf("failed to iterate over records: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return records, nil
}

// Last returns up to limit of the most recent records, newest first
func (b *BuntStorage) Last(limit int, filters ...core.RecordFilter) ([]*core.BuildRecord, error) {
	records, err := b.Records(filters...)
	if err != nil {
		return nil, err
	}

	last := make([]*core.BuildRecord, 0, min(limit, len(records)))
	for i := len(records) - 1; i >= 0 && len(last) < limit; i-- {
		last = append(last, records[i])
	}

	return last, nil
}

// Close closes the database connection
func (b *BuntStorage) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

var _ core.HistoryStorage = (*BuntStorage)(nil)
