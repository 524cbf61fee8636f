package kvrepos

import (
	"sort"
	"sync"

	"github.com/trezcool/lms/core"
	"github.com/trezcool/lms/core/user"
	"github.com/trezcool/lms/storage/kv"
)

const (
	usersKey   = "users" // credential index
	userPrefix = "user_"
	sessionKey = "session"
)

func userKey(id string) string { return userPrefix + id }

type userRepository struct {
	mu    sync.Mutex // guards the credential index
	store *kv.Store
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(store *kv.Store) user.Repository {
	return &userRepository{store: store}
}

func notFound(id string) error {
	return core.NewError(core.ErrNotFound, "user "+id+" not found")
}

func (repo *userRepository) index() []user.Credential {
	var idx []user.Credential
	repo.store.Get(usersKey, &idx)
	return idx
}

func (repo *userRepository) CreateUser(usr user.User, cred user.Credential) (user.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	idx := repo.index()
	for _, c := range idx {
		if c.Email == usr.Email {
			return user.User{}, core.NewError(core.ErrDuplicateEmail, "an account with this email already exists")
		}
	}

	if err := repo.store.Set(userKey(usr.ID), usr); err != nil {
		return user.User{}, err
	}
	cred.UserID, cred.Email = usr.ID, usr.Email
	if err := repo.store.Set(usersKey, append(idx, cred)); err != nil {
		_ = repo.store.Remove(userKey(usr.ID))
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) SaveUser(usr user.User) (user.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if err := repo.store.Set(userKey(usr.ID), usr); err != nil {
		return user.User{}, err
	}

	// keep the index email in sync
	idx := repo.index()
	for i, c := range idx {
		if c.UserID == usr.ID && c.Email != usr.Email {
			idx[i].Email = usr.Email
			if err := repo.store.Set(usersKey, idx); err != nil {
				return usr, err
			}
			break
		}
	}
	return usr, nil
}

func (repo *userRepository) GetUserByID(id string) (user.User, error) {
	var usr user.User
	if !repo.store.Get(userKey(id), &usr) {
		return user.User{}, notFound(id)
	}
	return usr, nil
}

func (repo *userRepository) GetUserByEmail(email string) (user.User, error) {
	cred, err := repo.GetCredentialByEmail(email)
	if err != nil {
		return user.User{}, err
	}
	return repo.GetUserByID(cred.UserID)
}

func (repo *userRepository) GetCredentialByEmail(email string) (user.Credential, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	for _, c := range repo.index() {
		if c.Email == email {
			return c, nil
		}
	}
	return user.Credential{}, core.NewError(core.ErrNotFound, "no account for "+email)
}

// QueryAllUsers returns every user, oldest first.
func (repo *userRepository) QueryAllUsers() ([]user.User, error) {
	keys, err := repo.store.Keys(userPrefix)
	if err != nil {
		return nil, err
	}
	users := make([]user.User, 0, len(keys))
	for _, key := range keys {
		var usr user.User
		if repo.store.Get(key, &usr) {
			users = append(users, usr)
		}
	}
	sort.SliceStable(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

func (repo *userRepository) DeleteUser(id string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	var usr user.User
	if !repo.store.Get(userKey(id), &usr) {
		return notFound(id)
	}

	idx := repo.index()
	kept := make([]user.Credential, 0, len(idx))
	for _, c := range idx {
		if c.UserID != id {
			kept = append(kept, c)
		}
	}
	if err := repo.store.Set(usersKey, kept); err != nil {
		return err
	}
	return repo.store.Remove(userKey(id))
}

func (repo *userRepository) GetSession() (user.Session, error) {
	var sess user.Session
	if !repo.store.Get(sessionKey, &sess) || sess.UserID == "" {
		return user.Session{}, core.NewError(core.ErrNotFound, "no session")
	}
	return sess, nil
}

func (repo *userRepository) SaveSession(sess user.Session) error {
	return repo.store.Set(sessionKey, sess)
}

func (repo *userRepository) DeleteSession() error {
	return repo.store.Remove(sessionKey)
}
