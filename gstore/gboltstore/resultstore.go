// Package gboltstore contains store implementations backed by a bbolt database file.
package gboltstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gordian-engine/gorvote/gstore"
	"github.com/gordian-engine/gorvote/gsum"
	"go.etcd.io/bbolt"
)

var resultsBucket = []byte("results")

// ResultStore is a [gstore.ResultStore] persisted in a bbolt database.
// Keys are the text form of round IDs.
type ResultStore struct {
	db *bbolt.DB
}

var _ gstore.ResultStore = (*ResultStore)(nil)

// NewResultStore opens or creates the database at path.
// Call [*ResultStore.Close] when done.
func NewResultStore(path string) (*ResultStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open result database %q: %w", path, err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(resultsBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create results bucket: %w", err)
	}

	return &ResultStore{db: db}, nil
}

func (s *ResultStore) Close() error {
	return s.db.Close()
}

type storedResult struct {
	RoundID    string      `json:"round_id"`
	Result     gsum.Result `json:"result"`
	Peers      []string    `json:"peers"`
	ResolvedAt int64       `json:"resolved_at_unix_nano"`
}

func (s *ResultStore) SaveResult(_ context.Context, r gstore.RoundResult) error {
	key := r.RoundID.String()
	if key == "" {
		return fmt.Errorf("cannot save result with invalid round ID")
	}

	b, err := json.Marshal(storedResult{
		RoundID:    key,
		Result:     r.Result,
		Peers:      r.Peers,
		ResolvedAt: r.ResolvedAt.UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(resultsBucket).Put([]byte(key), b)
	})
}

func (s *ResultStore) LoadResult(_ context.Context, id gsum.RoundID) (gstore.RoundResult, error) {
	var out gstore.RoundResult
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(resultsBucket).Get([]byte(id.String()))
		if b == nil {
			return fmt.Errorf("%w: %s", gstore.ErrResultNotFound, id)
		}

		r, err := decodeResult(b)
		if err != nil {
			return err
		}
		out = r
		return nil
	})
	return out, err
}

func (s *ResultStore) ListResults(context.Context) ([]gstore.RoundResult, error) {
	var out []gstore.RoundResult
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(resultsBucket).ForEach(func(_, v []byte) error {
			r, err := decodeResult(v)
			if err != nil {
				return err
			}
			out = append(out, r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	gstore.SortResults(out)
	return out, nil
}

// decodeResult copies everything it needs out of b,
// which is only valid for the life of the transaction.
func decodeResult(b []byte) (gstore.RoundResult, error) {
	var sr storedResult
	if err := json.Unmarshal(b, &sr); err != nil {
		return gstore.RoundResult{}, fmt.Errorf("failed to unmarshal stored result: %w", err)
	}

	id, err := gsum.ParseRoundID(sr.RoundID)
	if err != nil {
		return gstore.RoundResult{}, fmt.Errorf("stored result has bad round ID: %w", err)
	}

	return gstore.RoundResult{
		RoundID:    id,
		Result:     sr.Result,
		Peers:      sr.Peers,
		ResolvedAt: time.Unix(0, sr.ResolvedAt).UTC(),
	}, nil
}
