package store

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/fieldcrm/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLite_OpensLazily(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lazy.db")
	s := NewSQLite(path, MainSchema)
	t.Cleanup(func() { _ = s.Close() })

	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err), "nothing must be created before the first operation")

	_, err = s.Iterate(context.Background(), PartitionOrders, Query{})
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "main.db")

	s := NewSQLite(path, MainSchema)
	require.NoError(t, s.Put(ctx, PartitionProfile, Record{Key: "profile", Value: []byte(`{"id":"m1"}`)}))
	require.NoError(t, s.Close())

	// migrations run again on reopen and must be a no-op
	s = NewSQLite(path, MainSchema)
	t.Cleanup(func() { _ = s.Close() })
	got, err := s.Get(ctx, PartitionProfile, "profile")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"m1"}`, string(got.Value))
}

func TestSQLite_SettingsSchemaIsSeparate(t *testing.T) {
	ctx := context.Background()
	s := NewSQLite(filepath.Join(t.TempDir(), "settings.db"), SettingsSchema)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Put(ctx, PartitionSettings, Record{Key: "app", Value: []byte(`{}`)}))
	err := s.Put(ctx, PartitionOrders, Record{Key: "1"})
	require.ErrorIs(t, err, ErrUnknownPartition)
}

func TestSQLite_Unavailable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "dir", "main.db")
	s := NewSQLite(path, MainSchema)

	_, err := s.Get(context.Background(), PartitionOrders, "1")
	require.ErrorIs(t, err, ErrStorageUnavailable)

	// the failed open is not cached; creating the dir makes the next call work
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	_, err = s.Iterate(context.Background(), PartitionOrders, Query{})
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestSQLite_QuotaExceeded(t *testing.T) {
	ctx := context.Background()
	s := NewSQLite(filepath.Join(t.TempDir(), "small.db"), MainSchema, WithMaxBytes(64*sqlitePageSize))
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Put(ctx, PartitionOrders, Record{Key: "small", Value: []byte("ok")}))

	big := bytes.Repeat([]byte("x"), 1<<20)
	err := s.Put(ctx, PartitionOrders, Record{Key: "big", Value: big})
	require.ErrorIs(t, err, ErrQuotaExceeded)

	// the failed write rolled back, the store stays usable
	got, err := s.Get(ctx, PartitionOrders, "small")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(got.Value))
}

func TestSQLite_DriverErrorsAreClassified(t *testing.T) {
	tests := []struct {
		name    string
		dbErr   error
		wantErr error
	}{
		{"disk full", errors.New("database or disk is full"), ErrQuotaExceeded},
		{"cannot open", errors.New("unable to open database file"), ErrStorageUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			mock.ExpectBegin()
			mock.ExpectExec("INSERT INTO orders").WillReturnError(tt.dbErr)
			mock.ExpectRollback()

			s := newWithDB(db, MainSchema)
			err = s.Put(context.Background(), PartitionOrders, Record{Key: "1", Value: []byte("v")})
			require.ErrorIs(t, err, tt.wantErr)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSQLite_BeginFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("begin failed")
	mock.ExpectBegin().WillReturnError(boom)

	s := newWithDB(db, MainSchema)
	_, err = s.Iterate(context.Background(), PartitionOrders, Query{})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenOrMemory(t *testing.T) {
	ctx := context.Background()

	t.Run("healthy database", func(t *testing.T) {
		s := NewSQLite(filepath.Join(t.TempDir(), "ok.db"), MainSchema)
		t.Cleanup(func() { _ = s.Close() })
		st, persistent, err := OpenOrMemory(ctx, s, logging.Discard())
		require.NoError(t, err)
		assert.True(t, persistent)
		assert.Same(t, s, st)
	})

	t.Run("degrades to memory", func(t *testing.T) {
		s := NewSQLite(filepath.Join(t.TempDir(), "no", "such", "x.db"), MainSchema)
		st, persistent, err := OpenOrMemory(ctx, s, logging.Discard())
		require.NoError(t, err)
		assert.False(t, persistent)
		require.IsType(t, &MemoryStore{}, st)

		require.NoError(t, st.Put(ctx, PartitionOrders, Record{Key: "1", Value: []byte("v")}))
		_, err = st.Get(ctx, PartitionOrders, "1")
		require.NoError(t, err)
	})
}
