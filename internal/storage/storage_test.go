package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type kvStore interface {
	KV
	Batcher
	Close() error
}

func stores(t *testing.T) map[string]kvStore {
	t.Helper()
	sq, err := Open(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sq.Close() })

	return map[string]kvStore{
		"memory": NewMemory(),
		"sqlite": sq,
	}
}

func TestKV_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Get(ctx, "absent")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Set(ctx, "k", "old"))
			require.NoError(t, s.Set(ctx, "k", "new"))

			v, ok, err := s.Get(ctx, "k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "new", v)

			require.NoError(t, s.Delete(ctx, "k", "never-set"))
			_, ok, err = s.Get(ctx, "k")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestKV_SetManyAndDeleteTogether(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.SetMany(ctx, map[string]string{"a": "1", "b": "2"}))

			a, _, _ := s.Get(ctx, "a")
			b, _, _ := s.Get(ctx, "b")
			assert.Equal(t, "1", a)
			assert.Equal(t, "2", b)

			require.NoError(t, s.Delete(ctx, "a", "b"))
			_, okA, _ := s.Get(ctx, "a")
			_, okB, _ := s.Get(ctx, "b")
			assert.False(t, okA)
			assert.False(t, okB)
		})
	}
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "kv.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "joyful_auth_token", "tok"))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	v, ok, err := s.Get(ctx, "joyful_auth_token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok", v)
}

func TestMemory_Closed(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Close())

	_, _, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, m.Set(ctx, "k", "v"), ErrClosed)
}
