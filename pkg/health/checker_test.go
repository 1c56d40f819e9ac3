package health

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==================== CheckerConfig Tests ====================

func TestDefaultCheckerConfig(t *testing.T) {
	assert.Equal(t, 2*time.Second, DefaultCheckerConfig().Timeout)
}

// ==================== Database Checker Tests ====================

func TestDatabaseChecker_NilDB(t *testing.T) {
	err := DatabaseChecker(nil)()
	require.Error(t, err)
	assert.Equal(t, "database connection is nil", err.Error())
}

func TestDatabaseChecker_Ping(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	assert.NoError(t, DatabaseChecker(db)())

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	assert.EqualError(t, DatabaseChecker(db)(), "connection refused")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabaseChecker_PingFunc(t *testing.T) {
	var gotDeadline bool
	checker := DatabaseCheckerWithConfig(PingFunc(func(ctx context.Context) error {
		_, gotDeadline = ctx.Deadline()
		return nil
	}), CheckerConfig{Timeout: time.Second})

	assert.NoError(t, checker())
	assert.True(t, gotDeadline)
}

// ==================== Redis Checker Tests ====================

func TestRedisChecker(t *testing.T) {
	client, mock := redismock.NewClientMock()

	mock.ExpectPing().SetVal("PONG")
	assert.NoError(t, RedisChecker(client)())

	mock.ExpectPing().SetErr(errors.New("i/o timeout"))
	assert.EqualError(t, RedisChecker(client)(), "i/o timeout")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisChecker_Nil(t *testing.T) {
	assert.Error(t, RedisChecker(nil)())
}

// ==================== Status Checker Tests ====================

type fakeStatus struct{ err error }

func (f fakeStatus) Healthy() error { return f.err }

func TestStatusChecker(t *testing.T) {
	assert.NoError(t, StatusChecker(fakeStatus{})())
	assert.EqualError(t, StatusChecker(fakeStatus{err: errors.New("nats: disconnected")})(), "nats: disconnected")
	assert.EqualError(t, StatusChecker(nil)(), "not configured")
}

// ==================== Composite Checker Tests ====================

func TestCompositeChecker(t *testing.T) {
	tests := []struct {
		name     string
		checkers map[string]Checker
		wantErr  string
	}{
		{
			name:     "empty",
			checkers: map[string]Checker{},
		},
		{
			name: "all pass",
			checkers: map[string]Checker{
				"database": func() error { return nil },
				"redis":    func() error { return nil },
			},
		},
		{
			name: "one fails",
			checkers: map[string]Checker{
				"database": func() error { return errors.New("connection refused") },
				"redis":    func() error { return nil },
			},
			wantErr: "backend.database: connection refused",
		},
		{
			name: "failures sorted by name",
			checkers: map[string]Checker{
				"redis":    func() error { return errors.New("b") },
				"database": func() error { return errors.New("a") },
			},
			wantErr: "backend.database: a; backend.redis: b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CompositeChecker("backend", tt.checkers)()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

// ==================== Async Checker Tests ====================

func TestAsyncChecker(t *testing.T) {
	assert.NoError(t, AsyncChecker(func() error { return nil }, time.Second)())
	assert.EqualError(t, AsyncChecker(func() error { return errors.New("check failed") }, time.Second)(), "check failed")

	slow := AsyncChecker(func() error {
		time.Sleep(200 * time.Millisecond)
		return nil
	}, 20*time.Millisecond)
	assert.ErrorContains(t, slow(), "timed out")
}

// ==================== Cached Checker Tests ====================

func TestCachedChecker(t *testing.T) {
	calls := 0
	failing := errors.New("down")
	cached := NewCachedChecker(func() error {
		calls++
		if calls == 1 {
			return failing
		}
		return nil
	}, time.Second)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cached.now = func() time.Time { return now }

	assert.ErrorIs(t, cached.Check(), failing)
	assert.ErrorIs(t, cached.Check(), failing, "errors are cached too")
	assert.Equal(t, 1, calls)

	now = now.Add(2 * time.Second)
	assert.NoError(t, cached.Check())
	assert.Equal(t, 2, calls)
}

func TestCachedChecker_Concurrent(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	cached := NewCachedChecker(func() error {
		mu.Lock()
		calls++
		mu.Unlock()
		return nil
	}, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, cached.Check())
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, calls)
}

func BenchmarkCompositeChecker(b *testing.B) {
	checker := CompositeChecker("bench", map[string]Checker{
		"a": func() error { return nil },
		"b": func() error { return nil },
		"c": func() error { return nil },
	})
	for i := 0; i < b.N; i++ {
		_ = checker()
	}
}
