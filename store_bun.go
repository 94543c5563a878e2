package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

var _ Store = &BunStore{}

const defaultSnapshotKey = "session.identity"

type snapshotRecord struct {
	bun.BaseModel `bun:"table:session_snapshots,alias:snap"`
	Key           string    `bun:"key,pk"`
	Payload       []byte    `bun:"payload,notnull"`
	SavedAt       time.Time `bun:"saved_at,notnull"`
}

// BunStore keeps the identity snapshot in a SQLite database. It is the
// durable alternative to FileStore for front ends that already ship a
// local database.
type BunStore struct {
	db  *bun.DB
	key string
	now func() time.Time
}

// BunStoreOption customizes BunStore construction.
type BunStoreOption func(*BunStore)

// WithSnapshotKey overrides the row key the snapshot is stored under.
func WithSnapshotKey(key string) BunStoreOption {
	return func(s *BunStore) {
		if key != "" {
			s.key = key
		}
	}
}

// WithBunStoreClock injects a custom clock (useful for tests).
func WithBunStoreClock(clock func() time.Time) BunStoreOption {
	return func(s *BunStore) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewBunStore opens (or creates) the SQLite database at path and
// ensures the snapshot table exists.
func NewBunStore(ctx context.Context, path string, opts ...BunStoreOption) (*BunStore, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, "file:"+path+"?cache=shared")
	if err != nil {
		return nil, err
	}

	s := &BunStore{
		db:  bun.NewDB(sqldb, sqlitedialect.New()),
		key: defaultSnapshotKey,
		now: time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	if _, err := s.db.NewCreateTable().
		Model((*snapshotRecord)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		s.db.Close()
		return nil, err
	}

	return s, nil
}

// Load reads the cached identity. A missing row means no snapshot.
func (s *BunStore) Load(ctx context.Context) (*Identity, error) {
	rec := new(snapshotRecord)
	err := s.db.NewSelect().
		Model(rec).
		Where("key = ?", s.key).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	var ident Identity
	if err := json.Unmarshal(rec.Payload, &ident); err != nil {
		return nil, err
	}
	return &ident, nil
}

// Save upserts the snapshot row.
func (s *BunStore) Save(ctx context.Context, identity *Identity) error {
	payload, err := json.Marshal(identity)
	if err != nil {
		return err
	}

	rec := &snapshotRecord{
		Key:     s.key,
		Payload: payload,
		SavedAt: s.now().UTC(),
	}

	_, err = s.db.NewInsert().
		Model(rec).
		On("CONFLICT (key) DO UPDATE").
		Set("payload = EXCLUDED.payload").
		Set("saved_at = EXCLUDED.saved_at").
		Exec(ctx)
	return err
}

// Clear removes the snapshot row. Clearing an absent row is not an error.
func (s *BunStore) Clear(ctx context.Context) error {
	_, err := s.db.NewDelete().
		Model((*snapshotRecord)(nil)).
		Where("key = ?", s.key).
		Exec(ctx)
	return err
}

// Close releases the underlying database handle.
func (s *BunStore) Close() error {
	return s.db.Close()
}
