package kvrepos_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lms/core"
	"github.com/trezcool/lms/core/user"
	logsvc "github.com/trezcool/lms/services/logger"
	"github.com/trezcool/lms/storage/database/kvstore"
	"github.com/trezcool/lms/storage/kv"
)

func testConfig(driver string) *core.Config {
	conf := &core.Config{}
	conf.Storage.Driver = driver
	conf.Storage.Prefix = "lms_"
	conf.Storage.TempRetention = time.Hour
	return conf
}

func TestOpen(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		store, closer, err := kvrepos.Open(testConfig(core.StorageMemory), logsvc.NewNop())
		require.NoError(t, err)
		defer closer()
		assert.True(t, store.IsVolatile())
		assert.Equal(t, kvrepos.SchemaVersion, store.SchemaVersion())

		info, err := store.Info()
		require.NoError(t, err)
		assert.Equal(t, "memory", info.Backend)
		assert.True(t, info.Volatile)
	})

	t.Run("sqlite", func(t *testing.T) {
		conf := testConfig(core.StorageSQLite)
		conf.Storage.Path = filepath.Join(t.TempDir(), "lms.db")
		store, closer, err := kvrepos.Open(conf, logsvc.NewNop())
		require.NoError(t, err)
		defer closer()
		assert.False(t, store.IsVolatile())
		assert.Equal(t, kvrepos.SchemaVersion, store.SchemaVersion())
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, _, err := kvrepos.Open(testConfig("floppy"), logsvc.NewNop())
		assert.Error(t, err)
	})
}

func TestMigrations_NormalizeUsers(t *testing.T) {
	backend := kv.NewMemoryBackend(0)

	old, err := kv.Open(backend, kv.Options{Prefix: "lms_", Version: 1, Log: logsvc.NewNop()})
	require.NoError(t, err)
	require.NoError(t, old.Set("user_1", map[string]interface{}{
		"id":    "1",
		"name":  "Ada",
		"email": " Ada@Example.com ",
	}))
	require.NoError(t, old.Set("users", []map[string]string{{"id": "1", "email": "ADA@example.com", "hashedPassword": "1970177921"}}))

	store, err := kv.Open(backend, kv.Options{Prefix: "lms_", Version: kvrepos.SchemaVersion, Migrations: kvrepos.Migrations, Log: logsvc.NewNop()})
	require.NoError(t, err)
	assert.Equal(t, kvrepos.SchemaVersion, store.SchemaVersion())

	repo := kvrepos.NewUserRepository(store)
	usr, err := repo.GetUserByEmail("ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", usr.Email)
	assert.Equal(t, []string{user.RoleStudent}, usr.Roles)
	assert.NotNil(t, usr.Progress)
	assert.NotNil(t, usr.QuizResults)
	assert.Equal(t, user.DefaultPreferences(), usr.Preferences)

	cred, err := repo.GetCredentialByEmail("ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "1", cred.UserID)
	assert.Equal(t, "1970177921", cred.Hash)
}

func TestUserRepository(t *testing.T) {
	store, err := kv.Open(kv.NewMemoryBackend(0), kv.Options{Prefix: "lms_", Version: kvrepos.SchemaVersion, Log: logsvc.NewNop()})
	require.NoError(t, err)
	repo := kvrepos.NewUserRepository(store)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := user.User{ID: "a", Name: "A", Email: "a@example.com", CreatedAt: now.Add(time.Hour)}
	b := user.User{ID: "b", Name: "B", Email: "b@example.com", CreatedAt: now}
	_, err = repo.CreateUser(a, user.Credential{UserID: "a", Email: a.Email, Hash: "h"})
	require.NoError(t, err)
	_, err = repo.CreateUser(b, user.Credential{UserID: "b", Email: b.Email, Hash: "h"})
	require.NoError(t, err)

	all, err := repo.QueryAllUsers()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].ID, "oldest first")

	a.Email = "new@example.com"
	_, err = repo.SaveUser(a)
	require.NoError(t, err)
	_, err = repo.GetCredentialByEmail("a@example.com")
	assert.True(t, core.Is(err, core.ErrNotFound))
	cred, err := repo.GetCredentialByEmail("new@example.com")
	require.NoError(t, err)
	assert.Equal(t, "a", cred.UserID)

	require.NoError(t, repo.DeleteUser("a"))
	_, err = repo.GetUserByID("a")
	assert.True(t, core.Is(err, core.ErrNotFound))
	_, err = repo.GetCredentialByEmail("new@example.com")
	assert.True(t, core.Is(err, core.ErrNotFound))

	_, err = repo.GetSession()
	assert.True(t, core.Is(err, core.ErrNotFound))
	require.NoError(t, repo.SaveSession(user.Session{UserID: "b", LoggedInAt: now}))
	sess, err := repo.GetSession()
	require.NoError(t, err)
	assert.Equal(t, "b", sess.UserID)
	require.NoError(t, repo.DeleteSession())
	_, err = repo.GetSession()
	assert.True(t, core.Is(err, core.ErrNotFound))
}
