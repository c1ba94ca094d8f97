// Package storage persists the proving backend's state in Pebble: program
// images, inputs, session records and sealed receipts.
package storage

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
)

const (
	// defaultSyncInterval is the default interval between WAL syncs.
	defaultSyncInterval = 100 * time.Millisecond
)

// Key prefixes, one per record kind.
var (
	prefixImage   = []byte("image:")
	prefixInput   = []byte("input:")
	prefixSession = []byte("session:")
	prefixReceipt = []byte("receipt:")
)

// Storage is the backend's key-value store.
// Writes are non-blocking (NoSync) and a background goroutine periodically
// syncs the WAL; session completion is written as one atomic batch.
type Storage struct {
	db       *pebble.DB    // db is the underlying Pebble database
	stopSync chan struct{} // stopSync signals the sync goroutine to stop
	wg       sync.WaitGroup
}

// New opens the store at path.
func New(path string) (*Storage, error) {
	opts := &pebble.Options{
		Cache:                       pebble.NewCache(16 << 20), // 16 MB cache
		MemTableSize:                8 << 20,                   // 8 MB memtable
		MemTableStopWritesThreshold: 2,
	}

	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble at %s:\n%w", path, err)
	}

	s := &Storage{
		db:       db,
		stopSync: make(chan struct{}),
	}

	s.startSyncLoop()

	return s, nil
}

// PutImage stores a program image under its hex identity.
func (s *Storage) PutImage(id string, image []byte) error {
	return s.db.Set(key(prefixImage, id), image, pebble.NoSync)
}

// Image returns the image stored under id, or nil if absent.
func (s *Storage) Image(id string) ([]byte, error) {
	return s.get(key(prefixImage, id))
}

// PutInput stores program input under its content id.
func (s *Storage) PutInput(cid string, data []byte) error {
	return s.db.Set(key(prefixInput, cid), data, pebble.NoSync)
}

// Input returns the input stored under cid, or nil if absent.
func (s *Storage) Input(cid string) ([]byte, error) {
	return s.get(key(prefixInput, cid))
}

// Receipt returns the compressed receipt stored under cid, or nil if absent.
func (s *Storage) Receipt(cid string) ([]byte, error) {
	return s.get(key(prefixReceipt, cid))
}

// PutSession writes a session record.
func (s *Storage) PutSession(rec *Session) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session:\n%w", err)
	}

	return s.db.Set(key(prefixSession, rec.ID), data, pebble.NoSync)
}

// Session returns the record for id, or nil if absent.
func (s *Storage) Session(id string) (*Session, error) {
	data, err := s.get(key(prefixSession, id))
	if err != nil || data == nil {
		return nil, err
	}

	var rec Session
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal session %s:\n%w", id, err)
	}

	return &rec, nil
}

// CompleteSession atomically stores the compressed receipt and the
// succeeded session record, so a SUCCEEDED session always has its receipt.
func (s *Storage) CompleteSession(rec *Session, receipt []byte) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session:\n%w", err)
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	if err := batch.Set(key(prefixReceipt, rec.ReceiptCID), receipt, nil); err != nil {
		return err
	}

	if err := batch.Set(key(prefixSession, rec.ID), data, nil); err != nil {
		return err
	}

	return batch.Commit(pebble.NoSync)
}

// Sessions calls fn for every session record in key order.
// If fn returns an error, iteration stops and the error is returned.
func (s *Storage) Sessions(fn func(*Session) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefixSession,
		UpperBound: prefixUpperBound(prefixSession),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		value, err := iter.ValueAndErr()
		if err != nil {
			return err
		}

		var rec Session
		if err := json.Unmarshal(value, &rec); err != nil {
			return fmt.Errorf("unmarshal session %s:\n%w", iter.Key(), err)
		}

		if err := fn(&rec); err != nil {
			return err
		}
	}

	return iter.Error()
}

// get retrieves a copy of the value for key, or nil if absent.
func (s *Storage) get(k []byte) ([]byte, error) {
	value, closer, err := s.db.Get(k)
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	// value is invalid after closer.Close()
	result := make([]byte, len(value))
	copy(result, value)

	return result, nil
}

// key joins a prefix and an id.
func key(prefix []byte, id string) []byte {
	k := make([]byte, 0, len(prefix)+len(id))
	k = append(k, prefix...)

	return append(k, id...)
}

// prefixUpperBound computes the exclusive upper bound for a prefix scan.
func prefixUpperBound(prefix []byte) []byte {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)

	for i := len(upper) - 1; i >= 0; i-- {
		upper[i]++
		if upper[i] != 0 {
			return upper
		}
	}

	return nil
}

// Close stops the sync goroutine, syncs a final time and closes the database.
func (s *Storage) Close() error {
	close(s.stopSync)
	s.wg.Wait()

	if err := s.db.LogData(nil, pebble.Sync); err != nil {
		return err
	}

	return s.db.Close()
}

// startSyncLoop starts the background goroutine that periodically syncs the WAL.
func (s *Storage) startSyncLoop() {
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(defaultSyncInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				_ = s.db.LogData(nil, pebble.Sync)
			case <-s.stopSync:
				return
			}
		}
	}()
}
