package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/existflow/joyful/internal/model"
	"github.com/existflow/joyful/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveLoadClear(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.NewMemory())

	require.NoError(t, s.Save(ctx, "tok", &model.Profile{ID: 3, Email: "a@b.com", TrialCount: 5}))

	token, err := s.LoadToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", token)

	p, err := s.LoadProfile(ctx)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "a@b.com", p.Email)

	require.NoError(t, s.Clear(ctx))
	token, err = s.LoadToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
	p, err = s.LoadProfile(ctx)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestStore_SaveRequiresToken(t *testing.T) {
	s := NewStore(storage.NewMemory())
	assert.Error(t, s.Save(context.Background(), "", &model.Profile{Email: "a@b.com"}))
}

func TestStore_DiscardsProfileWithoutToken(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	require.NoError(t, kv.Set(ctx, KeyProfile, `{"email":"ghost@b.com"}`))

	s := NewStore(kv)
	p, err := s.LoadProfile(ctx)
	require.NoError(t, err)
	assert.Nil(t, p)

	_, ok, err := kv.Get(ctx, KeyProfile)
	require.NoError(t, err)
	assert.False(t, ok, "stale profile should be deleted")
}

func TestStore_DiscardsUnreadableProfile(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	require.NoError(t, kv.SetMany(ctx, map[string]string{KeyToken: "tok", KeyProfile: "{not json"}))

	p, err := NewStore(kv).LoadProfile(ctx)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestStore_NilProfileDropsCachedOne(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.NewMemory())
	require.NoError(t, s.Save(ctx, "old", &model.Profile{Email: "a@b.com"}))
	require.NoError(t, s.Save(ctx, "new", nil))

	sess, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", sess.Token)
	assert.Nil(t, sess.Profile)
}

func TestStore_SQLitePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "joyful.db")

	db, err := storage.Open(path)
	require.NoError(t, err)
	require.NoError(t, NewStore(db).Save(ctx, "tok", &model.Profile{Email: "a@b.com", IsAdmin: true}))
	require.NoError(t, db.Close())

	db, err = storage.Open(path)
	require.NoError(t, err)
	defer db.Close()

	sess, err := NewStore(db).Load(ctx)
	require.NoError(t, err)
	assert.True(t, sess.IsAuthenticated())
	require.NotNil(t, sess.Profile)
	assert.True(t, sess.Profile.IsAdmin)
}
