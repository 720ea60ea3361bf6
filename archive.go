package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"
)

// SessionArchive persists finished sessions to BadgerDB so past rooms,
// transcripts and suggestions survive restarts.
type SessionArchive struct {
	db *badger.DB
}

// NewSessionArchive opens the archive database at dirPath.
func NewSessionArchive(dirPath string) (*SessionArchive, error) {
	opts := badger.DefaultOptions(dirPath).
		WithLoggingLevel(badger.ERROR)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open session archive: %w", err)
	}
	return &SessionArchive{db: db}, nil
}

// Close closes the archive database.
func (a *SessionArchive) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

func archiveKey(id string) []byte {
	return []byte(ArchiveKeyPrefix + id)
}

// SaveSession stores a finished session, replacing any record with the
// same ID.
func (a *SessionArchive) SaveSession(record SessionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal session record: %w", err)
	}
	return a.db.Update(func(txn *badger.Txn) error {
		return txn.Set(archiveKey(record.ID), data)
	})
}

// GetSession loads one archived session by ID.
func (a *SessionArchive) GetSession(id string) (*SessionRecord, error) {
	var record SessionRecord
	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(archiveKey(id))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return fmt.Errorf("no archived session %q", id)
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListSessions returns all archived sessions, most recent first.
func (a *SessionArchive) ListSessions() ([]SessionRecord, error) {
	var records []SessionRecord
	err := a.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(ArchiveKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var record SessionRecord
				if err := json.Unmarshal(val, &record); err != nil {
					return fmt.Errorf("failed to unmarshal session record: %w", err)
				}
				records = append(records, record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].EndedAt.After(records[j].EndedAt)
	})
	return records, nil
}

// DeleteSession removes one archived session.
func (a *SessionArchive) DeleteSession(id string) error {
	return a.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(archiveKey(id))
	})
}
