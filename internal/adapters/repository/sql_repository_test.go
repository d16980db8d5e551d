package repository_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pillme/nutrition-service/internal/adapters/repository"
	"github.com/pillme/nutrition-service/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubResult scripts the outcome of one statement, matched by substring
type stubResult struct {
	rowsAffected int64
	err          error
}

// stubStore is a minimal database/sql driver that records every executed
// statement and transaction boundary, so the repository can run against
// scripted row counts and failures without a live database.
type stubStore struct {
	mu        sync.Mutex
	execs     []string
	begins    int
	commits   int
	rollbacks int
	results   map[string]stubResult
}

func newStubStore() *stubStore {
	return &stubStore{results: make(map[string]stubResult)}
}

func (s *stubStore) script(match string, rowsAffected int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[match] = stubResult{rowsAffected: rowsAffected, err: err}
}

func (s *stubStore) execCount(match string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, q := range s.execs {
		if strings.Contains(q, match) {
			count++
		}
	}
	return count
}

func (s *stubStore) counts() (begins, commits, rollbacks int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.begins, s.commits, s.rollbacks
}

func (s *stubStore) open() *sql.DB {
	return sql.OpenDB(stubConnector{store: s})
}

type stubConnector struct{ store *stubStore }

func (c stubConnector) Connect(context.Context) (driver.Conn, error) {
	return &stubConn{store: c.store}, nil
}

func (c stubConnector) Driver() driver.Driver { return stubDriver{} }

type stubDriver struct{}

func (stubDriver) Open(string) (driver.Conn, error) {
	return nil, errors.New("open through OpenDB")
}

type stubConn struct{ store *stubStore }

func (c *stubConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepare unsupported")
}

func (c *stubConn) Close() error { return nil }

func (c *stubConn) Begin() (driver.Tx, error) {
	c.store.mu.Lock()
	c.store.begins++
	c.store.mu.Unlock()
	return &stubTx{store: c.store}, nil
}

func (c *stubConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	return c.Begin()
}

func (c *stubConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.store.mu.Lock()
	c.store.execs = append(c.store.execs, query)
	var res stubResult
	found := false
	for match, r := range c.store.results {
		if strings.Contains(query, match) {
			res = r
			found = true
			break
		}
	}
	c.store.mu.Unlock()

	if found {
		if res.err != nil {
			return nil, res.err
		}
		return driver.RowsAffected(res.rowsAffected), nil
	}
	return driver.RowsAffected(1), nil
}

type stubTx struct{ store *stubStore }

func (t *stubTx) Commit() error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.commits++
	return nil
}

func (t *stubTx) Rollback() error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.rollbacks++
	return nil
}

func TestSQLRepository_DeleteGroup_MissingGroupNotRetried(t *testing.T) {
	store := newStubStore()
	db := store.open()
	defer db.Close()
	repo := repository.NewSQLRepository(db)

	store.script("DELETE FROM nutrient_groups", 0, nil)

	start := time.Now()
	err := repo.DeleteGroup(context.Background(), uuid.New())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	// A missing row is deterministic: the statement must run exactly once,
	// with no retry sleeps
	assert.Equal(t, 1, store.execCount("DELETE FROM nutrient_groups"))
	assert.Less(t, time.Since(start), time.Second)
}

func TestSQLRepository_UpdateUserProfile_MissingProfileNotRetried(t *testing.T) {
	store := newStubStore()
	db := store.open()
	defer db.Close()
	repo := repository.NewSQLRepository(db)

	store.script("UPDATE user_profiles", 0, nil)

	profile := &domain.UserProfile{
		UserID:    uuid.New(),
		Birthdate: time.Date(2000, time.March, 15, 0, 0, 0, 0, time.UTC),
		Sex:       domain.SexFemale,
	}
	err := repo.UpdateUserProfile(context.Background(), profile)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Equal(t, 1, store.execCount("UPDATE user_profiles"))
}

func TestSQLRepository_UpdateGroupWithEntries_MissingGroupNotRetried(t *testing.T) {
	store := newStubStore()
	db := store.open()
	defer db.Close()
	repo := repository.NewSQLRepository(db)

	store.script("UPDATE nutrient_groups", 0, nil)

	err := repo.UpdateGroupWithEntries(context.Background(), uuid.New(), "renamed",
		[]domain.IntakeEntry{{NutrientID: 1, Intake: 50}})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Equal(t, 1, store.execCount("UPDATE nutrient_groups"))

	begins, commits, rollbacks := store.counts()
	assert.Equal(t, 1, begins)
	assert.Equal(t, 0, commits)
	assert.Equal(t, 1, rollbacks)
}

func TestSQLRepository_CreateGroupWithEntries_RollsBackOnEntryFailure(t *testing.T) {
	store := newStubStore()
	db := store.open()
	defer db.Close()
	repo := repository.NewSQLRepository(db)

	store.script("INSERT INTO nutrient_intakes", 0, errors.New("check constraint violation"))

	group := &domain.NutrientGroup{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Name:      "multivitamin",
		CreatedAt: time.Now(),
	}
	err := repo.CreateGroupWithEntries(context.Background(), group,
		[]domain.IntakeEntry{{NutrientID: 1, Intake: 50}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert intake entry")

	// Every attempt must roll back: the group row never persists without
	// its entries
	begins, commits, rollbacks := store.counts()
	assert.Equal(t, 0, commits)
	assert.Equal(t, begins, rollbacks)
	assert.Equal(t, store.execCount("INSERT INTO nutrient_groups"), rollbacks)
}

func TestSQLRepository_CreateGroupWithEntries_CommitsAllEntries(t *testing.T) {
	store := newStubStore()
	db := store.open()
	defer db.Close()
	repo := repository.NewSQLRepository(db)

	group := &domain.NutrientGroup{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Name:      "multivitamin",
		CreatedAt: time.Now(),
	}
	err := repo.CreateGroupWithEntries(context.Background(), group,
		[]domain.IntakeEntry{{NutrientID: 1, Intake: 50}, {NutrientID: 2, Intake: 700}})

	require.NoError(t, err)
	assert.Equal(t, 1, store.execCount("INSERT INTO nutrient_groups"))
	assert.Equal(t, 2, store.execCount("INSERT INTO nutrient_intakes"))

	begins, commits, rollbacks := store.counts()
	assert.Equal(t, 1, begins)
	assert.Equal(t, 1, commits)
	assert.Equal(t, 0, rollbacks)
}

func TestSQLRepository_UpdateGroupWithEntries_IgnoresUnknownNutrient(t *testing.T) {
	store := newStubStore()
	db := store.open()
	defer db.Close()
	repo := repository.NewSQLRepository(db)

	// The entry update matches no row for this (group, nutrient) pair.
	// Update never inserts missing rows, so the operation still commits.
	store.script("UPDATE nutrient_intakes", 0, nil)

	err := repo.UpdateGroupWithEntries(context.Background(), uuid.New(), "renamed",
		[]domain.IntakeEntry{{NutrientID: 99, Intake: 10}})

	require.NoError(t, err)
	assert.Equal(t, 1, store.execCount("UPDATE nutrient_intakes"))
	assert.Equal(t, 0, store.execCount("INSERT INTO nutrient_intakes"))

	begins, commits, rollbacks := store.counts()
	assert.Equal(t, 1, begins)
	assert.Equal(t, 1, commits)
	assert.Equal(t, 0, rollbacks)
}
