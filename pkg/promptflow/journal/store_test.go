package journal_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/promptflow/pkg/promptflow/journal"
)

func newRecord(runID string, step int, failed bool) *journal.Record {
	r := journal.NewRecord(runID, step)
	r.Model = "gpt-4o"
	if failed {
		r.Error = "remote call to gpt-4o: http 503"
		r.Action = "retry_after_delay"
	}
	return r
}

func stores(t *testing.T) map[string]func(t *testing.T) journal.Store {
	return map[string]func(t *testing.T) journal.Store{
		"memory": func(t *testing.T) journal.Store {
			return journal.NewMemoryStore()
		},
		"sqlite": func(t *testing.T) journal.Store {
			s, err := journal.NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
			require.NoError(t, err)
			return s
		},
		"redis": func(t *testing.T) journal.Store {
			mr := miniredis.RunT(t)
			client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
			t.Cleanup(func() { client.Close() })
			return journal.NewRedisStoreFromClient(client)
		},
	}
}

// TestStoreContract runs the same behavior checks against every store.
func TestStoreContract(t *testing.T) {
	for name, newStore := range stores(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("append get list", func(t *testing.T) {
				s := newStore(t)
				defer s.Close()
				ctx := context.Background()

				r1 := newRecord("run-1", 1, true)
				r2 := newRecord("run-1", 1, false)
				r2.Attempt = 1
				r3 := newRecord("run-2", 1, false)
				for _, r := range []*journal.Record{r1, r2, r3} {
					require.NoError(t, s.Append(ctx, r))
				}

				got, err := s.Get(ctx, r2.ID)
				require.NoError(t, err)
				assert.Equal(t, r2.ID, got.ID)
				assert.Equal(t, 1, got.Attempt)
				assert.True(t, r2.Started.Equal(got.Started))

				recs, err := s.List(ctx, "run-1")
				require.NoError(t, err)
				require.Len(t, recs, 2)
				assert.Equal(t, r1.ID, recs[0].ID)
				assert.Equal(t, r2.ID, recs[1].ID)
				assert.True(t, recs[0].Failed())
			})

			t.Run("unknown run lists empty", func(t *testing.T) {
				s := newStore(t)
				defer s.Close()

				recs, err := s.List(context.Background(), "nope")
				require.NoError(t, err)
				assert.Empty(t, recs)
			})

			t.Run("get missing", func(t *testing.T) {
				s := newStore(t)
				defer s.Close()

				_, err := s.Get(context.Background(), "missing")
				assert.ErrorIs(t, err, journal.ErrNotFound)
			})

			t.Run("duplicate id", func(t *testing.T) {
				s := newStore(t)
				defer s.Close()
				ctx := context.Background()

				r := newRecord("run-1", 1, false)
				require.NoError(t, s.Append(ctx, r))
				assert.ErrorIs(t, s.Append(ctx, r), journal.ErrDuplicate)

				recs, err := s.List(ctx, "run-1")
				require.NoError(t, err)
				assert.Len(t, recs, 1)
			})

			t.Run("invalid record", func(t *testing.T) {
				s := newStore(t)
				defer s.Close()

				assert.ErrorIs(t, s.Append(context.Background(), &journal.Record{ID: "x"}), journal.ErrInvalidRecord)
				assert.ErrorIs(t, s.Append(context.Background(), nil), journal.ErrInvalidRecord)
			})

			t.Run("runs summary", func(t *testing.T) {
				s := newStore(t)
				defer s.Close()
				ctx := context.Background()

				old := newRecord("old", 1, true)
				old.Started = time.Now().Add(-time.Hour).UTC()
				require.NoError(t, s.Append(ctx, old))
				require.NoError(t, s.Append(ctx, newRecord("new", 1, true)))
				require.NoError(t, s.Append(ctx, newRecord("new", 1, false)))

				runs, err := s.Runs(ctx)
				require.NoError(t, err)
				require.Len(t, runs, 2)
				assert.Equal(t, "new", runs[0].RunID)
				assert.Equal(t, 2, runs[0].Records)
				assert.Equal(t, 1, runs[0].Failures)
				assert.Equal(t, "old", runs[1].RunID)
			})

			t.Run("delete run", func(t *testing.T) {
				s := newStore(t)
				defer s.Close()
				ctx := context.Background()

				r := newRecord("run-1", 1, false)
				require.NoError(t, s.Append(ctx, r))
				require.NoError(t, s.Append(ctx, newRecord("run-2", 1, false)))

				require.NoError(t, s.DeleteRun(ctx, "run-1"))
				require.NoError(t, s.DeleteRun(ctx, "never-existed"))

				recs, err := s.List(ctx, "run-1")
				require.NoError(t, err)
				assert.Empty(t, recs)

				_, err = s.Get(ctx, r.ID)
				assert.ErrorIs(t, err, journal.ErrNotFound)

				runs, err := s.Runs(ctx)
				require.NoError(t, err)
				require.Len(t, runs, 1)
				assert.Equal(t, "run-2", runs[0].RunID)
			})

			t.Run("concurrent appends", func(t *testing.T) {
				s := newStore(t)
				defer s.Close()
				ctx := context.Background()

				var wg sync.WaitGroup
				for i := 0; i < 20; i++ {
					wg.Add(1)
					go func(i int) {
						defer wg.Done()
						assert.NoError(t, s.Append(ctx, newRecord(fmt.Sprintf("run-%d", i%4), i, false)))
					}(i)
				}
				wg.Wait()

				runs, err := s.Runs(ctx)
				require.NoError(t, err)
				total := 0
				for _, r := range runs {
					total += r.Records
				}
				assert.Equal(t, 20, total)
			})
		})
	}
}

func TestClosedStores(t *testing.T) {
	sqlite, err := journal.NewSQLiteStore(":memory:")
	require.NoError(t, err)

	for name, s := range map[string]journal.Store{"memory": journal.NewMemoryStore(), "sqlite": sqlite} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Close())
			require.NoError(t, s.Close(), "close is idempotent")

			ctx := context.Background()
			assert.ErrorIs(t, s.Append(ctx, newRecord("r", 1, false)), journal.ErrStoreClosed)
			_, err := s.Get(ctx, "x")
			assert.ErrorIs(t, err, journal.ErrStoreClosed)
			_, err = s.List(ctx, "r")
			assert.ErrorIs(t, err, journal.ErrStoreClosed)
			_, err = s.Runs(ctx)
			assert.ErrorIs(t, err, journal.ErrStoreClosed)
			assert.ErrorIs(t, s.DeleteRun(ctx, "r"), journal.ErrStoreClosed)
		})
	}
}

func TestSQLiteStore_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	s1, err := journal.NewSQLiteStore(path)
	require.NoError(t, err)
	r := newRecord("run-1", 3, false)
	require.NoError(t, s1.Append(context.Background(), r))
	require.NoError(t, s1.Close())

	s2, err := journal.NewSQLiteStore(path)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Get(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Step)
}

func TestSQLiteStore_InvalidPath(t *testing.T) {
	_, err := journal.NewSQLiteStore("/nonexistent/path/journal.db")
	assert.Error(t, err)
}

func TestRedisStore_TTLAndPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	defer client.Close()

	s := journal.NewRedisStoreFromClient(client, journal.WithPrefix("test:"), journal.WithTTL(time.Minute))
	ctx := context.Background()

	r := newRecord("run-1", 1, false)
	require.NoError(t, s.Append(ctx, r))
	assert.True(t, mr.Exists("test:rec:"+r.ID))
	assert.Equal(t, time.Minute, mr.TTL("test:rec:"+r.ID))

	mr.FastForward(2 * time.Minute)

	_, err := s.Get(ctx, r.ID)
	assert.ErrorIs(t, err, journal.ErrNotFound)

	recs, err := s.List(ctx, "run-1")
	require.NoError(t, err)
	assert.Empty(t, recs, "expired records are skipped")

	require.NoError(t, s.Close(), "borrowed client is left open")
	require.NoError(t, client.Ping(ctx).Err())
}

func TestRedisStore_ConnectionError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	s := journal.NewRedisStoreFromClient(client)

	mr.Close()
	err := s.Append(context.Background(), newRecord("run-1", 1, false))
	require.Error(t, err)
	assert.False(t, errors.Is(err, journal.ErrDuplicate))
}

func TestOpen(t *testing.T) {
	s, err := journal.Open("", "")
	require.NoError(t, err)
	assert.IsType(t, &journal.MemoryStore{}, s)

	s, err = journal.Open("sqlite", filepath.Join(t.TempDir(), "j.db"))
	require.NoError(t, err)
	assert.IsType(t, &journal.SQLiteStore{}, s)
	require.NoError(t, s.Close())

	mr := miniredis.RunT(t)
	s, err = journal.Open("redis", "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	require.NoError(t, s.Append(context.Background(), newRecord("r", 1, false)))
	require.NoError(t, s.Close())

	_, err = journal.Open("sqlite", "")
	assert.Error(t, err)
	_, err = journal.Open("redis", "::bad")
	assert.Error(t, err)
	_, err = journal.Open("postgres", "x")
	assert.ErrorContains(t, err, `unknown journal driver "postgres"`)
}
