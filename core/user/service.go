package user

import (
	"fmt"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/lms/core"
)

// BackupVersion is the format version written by Export.
const BackupVersion = 2

// ErrUnchanged may be returned by a Mutate callback to skip the save.
var ErrUnchanged = errors.New("unchanged")

type (
	Repository interface {
		// CreateUser stores usr and its credential; fails with core.ErrDuplicateEmail if the email is taken.
		CreateUser(usr User, cred Credential) (User, error)
		SaveUser(usr User) (User, error)
		GetUserByID(id string) (User, error)
		GetUserByEmail(email string) (User, error)
		GetCredentialByEmail(email string) (Credential, error)
		QueryAllUsers() ([]User, error)
		DeleteUser(id string) error

		GetSession() (Session, error)
		SaveSession(sess Session) error
		DeleteSession() error
	}

	Service struct {
		repo           Repository
		hasher         Hasher
		validate       *validator.Validate
		translator     ut.Translator
		log            core.Logger
		sessionTimeout time.Duration
		demoAccounts   bool
		locks          *keyedMutex
	}
)

func NewService(
	repo Repository,
	validate *validator.Validate,
	translator ut.Translator,
	conf *core.Config,
	log core.Logger,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(validate, "validate"),
		vala.IsNotNil(conf, "conf"),
		vala.IsNotNil(log, "log"),
	).CheckAndPanic()

	RegisterValidators(validate, translator)
	return &Service{
		repo:           repo,
		hasher:         NewHasher(conf.Auth.Hasher),
		validate:       validate,
		translator:     translator,
		log:            log,
		sessionTimeout: conf.Session.Timeout,
		demoAccounts:   conf.Auth.DemoAccounts,
		locks:          newKeyedMutex(),
	}
}

func (svc *Service) validateStruct(v interface{}) error {
	if err := svc.validate.Struct(v); err != nil {
		return core.TranslateValidation(err, svc.translator)
	}
	return nil
}

func newID(now time.Time) string {
	return fmt.Sprintf("user_%d_%s", now.UnixNano()/int64(time.Millisecond), strings.ReplaceAll(uuid.NewString(), "-", "")[:9])
}

func invalidCredentials() error {
	return core.NewError(core.ErrInvalidCredentials, "invalid email or password")
}

// reservedFor returns the demo account owning email while demo accounts are enabled.
func (svc *Service) reservedFor(email string) (demoAccount, bool) {
	if !svc.demoAccounts {
		return demoAccount{}, false
	}
	return findDemoAccount(email)
}

func reservedEmail(email string) error {
	return core.NewError(core.ErrDuplicateEmail, email+" is reserved for a demo account")
}

func (svc *Service) Register(nu NewUser) (User, error) {
	nu.Clean()
	if err := svc.validateStruct(nu); err != nil {
		return User{}, err
	}
	if _, ok := svc.reservedFor(nu.Email); ok {
		return User{}, reservedEmail(nu.Email)
	}
	hash, err := svc.hasher.Hash(nu.Password)
	if err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}

	now := core.NowFunc()
	usr := User{
		ID:          newID(now),
		Name:        nu.Name,
		Email:       nu.Email,
		Roles:       []string{RoleStudent},
		CreatedAt:   now,
		UpdatedAt:   now,
		LastLoginAt: now,
	}
	usr.Normalize()
	usr, err = svc.repo.CreateUser(usr, Credential{UserID: usr.ID, Email: usr.Email, Hash: hash})
	if err != nil {
		return User{}, err
	}
	svc.log.Info("user registered", "user", usr.ID)
	return usr, svc.openSession(usr)
}

type loginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (svc *Service) Login(email, pwd string) (User, error) {
	form := loginForm{Email: CleanEmail(email), Password: pwd}
	if err := svc.validateStruct(form); err != nil {
		return User{}, err
	}

	if acct, ok := svc.reservedFor(form.Email); ok && pwd == DemoPassword {
		owner, err := svc.repo.GetUserByEmail(form.Email)
		switch {
		case err == nil && owner.ID == acct.ID, core.Is(err, core.ErrNotFound):
			return svc.loginDemo(acct)
		case err != nil:
			return User{}, err
		}
		// owned by a regular account: fall through to its credential
	}

	cred, err := svc.repo.GetCredentialByEmail(form.Email)
	if err != nil {
		if core.Is(err, core.ErrNotFound) {
			return User{}, invalidCredentials()
		}
		return User{}, err
	}
	if !svc.hasher.Compare(cred.Hash, pwd) {
		return User{}, invalidCredentials()
	}
	return svc.touchLogin(cred.UserID, nil)
}

// loginDemo creates the demo record on first use and reuses it afterwards. No credential is checked.
func (svc *Service) loginDemo(acct demoAccount) (User, error) {
	if _, err := svc.repo.GetUserByID(acct.ID); err == nil {
		return svc.touchLogin(acct.ID, nil)
	} else if !core.Is(err, core.ErrNotFound) {
		return User{}, err
	}

	now := core.NowFunc()
	usr := User{
		ID:          acct.ID,
		Name:        acct.Name,
		Email:       acct.Email,
		Roles:       acct.Roles,
		IsDemo:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
		LastLoginAt: now,
	}
	usr.Normalize()
	usr, err := svc.repo.CreateUser(usr, Credential{UserID: usr.ID, Email: usr.Email})
	if err != nil {
		return User{}, err
	}
	svc.log.Info("demo account created", "user", usr.ID)
	return usr, svc.openSession(usr)
}

// LoginExternal signs in the user an OAuth provider vouched for, creating the account on first sign-in.
func (svc *Service) LoginExternal(ext ExternalIdentity) (User, error) {
	ext.Email = CleanEmail(ext.Email)
	ext.Name = CleanName(ext.Name)
	if err := svc.validateStruct(ext); err != nil {
		return User{}, err
	}
	if _, ok := svc.reservedFor(ext.Email); ok {
		return User{}, reservedEmail(ext.Email)
	}

	existing, err := svc.repo.GetUserByEmail(ext.Email)
	if err == nil {
		return svc.touchLogin(existing.ID, func(usr *User) {
			usr.OAuthProvider = ext.Provider
		})
	}
	if !core.Is(err, core.ErrNotFound) {
		return User{}, err
	}

	now := core.NowFunc()
	usr := User{
		ID:            newID(now),
		Name:          ext.Name,
		Email:         ext.Email,
		Roles:         []string{RoleStudent},
		OAuthProvider: ext.Provider,
		OAuthID:       ext.Subject,
		Profile:       Profile{Avatar: ext.Picture},
		CreatedAt:     now,
		UpdatedAt:     now,
		LastLoginAt:   now,
	}
	usr.Normalize()
	usr, err = svc.repo.CreateUser(usr, Credential{UserID: usr.ID, Email: usr.Email})
	if err != nil {
		return User{}, err
	}
	svc.log.Info("user registered", "user", usr.ID, "provider", ext.Provider)
	return usr, svc.openSession(usr)
}

func (svc *Service) touchLogin(id string, update func(usr *User)) (User, error) {
	usr, err := svc.Mutate(id, func(usr *User) error {
		usr.LastLoginAt = core.NowFunc()
		if update != nil {
			update(usr)
		}
		return nil
	})
	if err != nil {
		return User{}, err
	}
	return usr, svc.openSession(usr)
}

func (svc *Service) openSession(usr User) error {
	if err := svc.repo.SaveSession(Session{UserID: usr.ID, LoggedInAt: usr.LastLoginAt}); err != nil {
		return err
	}
	svc.log.Debug("session opened", "user", usr.ID)
	return nil
}

// CurrentSession returns the logged-in user. A session older than the session timeout is closed.
func (svc *Service) CurrentSession() (User, error) {
	sess, err := svc.repo.GetSession()
	if err != nil {
		if core.Is(err, core.ErrNotFound) {
			return User{}, core.NewError(core.ErrNotAuthenticated, "not logged in")
		}
		return User{}, err
	}

	usr, err := svc.repo.GetUserByID(sess.UserID)
	if err != nil {
		if core.Is(err, core.ErrNotFound) {
			_ = svc.repo.DeleteSession()
			return User{}, core.NewError(core.ErrNotAuthenticated, "not logged in")
		}
		return User{}, err
	}

	if svc.sessionTimeout > 0 && core.NowFunc().Sub(usr.LastLoginAt) > svc.sessionTimeout {
		if err := svc.Logout(); err != nil {
			svc.log.Warn("closing expired session", "user", usr.ID, "err", err)
		}
		return User{}, core.NewError(core.ErrNotAuthenticated, "session expired, please log in again")
	}
	return usr, nil
}

// Logout closes the session. User data is kept.
func (svc *Service) Logout() error {
	return svc.repo.DeleteSession()
}

// UpdateProfile merges pu into the logged-in user.
func (svc *Service) UpdateProfile(pu ProfileUpdate) (User, error) {
	usr, err := svc.CurrentSession()
	if err != nil {
		return User{}, err
	}
	pu.Clean()
	if err := svc.validateStruct(pu); err != nil {
		return User{}, err
	}
	if pu.Name != nil {
		*pu.Name = CleanName(*pu.Name)
	}
	return svc.Mutate(usr.ID, func(usr *User) error {
		pu.apply(usr)
		usr.UpdatedAt = core.NowFunc()
		return nil
	})
}

// Mutate loads the user, applies fn and saves the result, holding the user's lock throughout.
// When fn fails nothing is saved; when fn returns ErrUnchanged the loaded user is returned unsaved.
// When the save fails the mutated user is returned along with a *core.StorageError.
func (svc *Service) Mutate(id string, fn func(usr *User) error) (User, error) {
	unlock := svc.locks.Lock(id)
	defer unlock()

	usr, err := svc.repo.GetUserByID(id)
	if err != nil {
		return User{}, err
	}
	usr.Normalize()
	if err := fn(&usr); err != nil {
		if err == ErrUnchanged {
			return usr, nil
		}
		return User{}, err
	}

	saved, err := svc.repo.SaveUser(usr)
	if err != nil {
		if core.IsStorageFailure(err) {
			svc.log.Error("saving user", "user", id, "err", err)
			return usr, err
		}
		return User{}, err
	}
	return saved, nil
}

func (svc *Service) Get(id string) (User, error) {
	usr, err := svc.repo.GetUserByID(id)
	if err != nil {
		return User{}, err
	}
	usr.Normalize()
	return usr, nil
}

func (svc *Service) GetByEmail(email string) (User, error) {
	return svc.repo.GetUserByEmail(CleanEmail(email))
}

func (svc *Service) QueryAll() ([]User, error) {
	return svc.repo.QueryAllUsers()
}

// Delete removes the user, its credential and, if it is logged in, the session.
func (svc *Service) Delete(id string) error {
	unlock := svc.locks.Lock(id)
	defer unlock()

	if err := svc.repo.DeleteUser(id); err != nil {
		return err
	}
	if sess, err := svc.repo.GetSession(); err == nil && sess.UserID == id {
		return svc.repo.DeleteSession()
	}
	return nil
}

// Export returns a portable copy of the user's data.
func (svc *Service) Export(id string) (Backup, error) {
	usr, err := svc.Get(id)
	if err != nil {
		return Backup{}, err
	}
	return Backup{Version: BackupVersion, ExportedAt: core.NowFunc(), User: usr}, nil
}

// Import restores a backup and logs its user in. An existing user with the same id is replaced,
// keeping its credential; an unknown user is created without one.
func (svc *Service) Import(b Backup) (User, error) {
	usr := b.User
	usr.Email = CleanEmail(usr.Email)
	if usr.ID == "" {
		return User{}, core.NewFieldError("user.id", "backup has no user id")
	}
	if err := svc.validate.Var(usr.Email, "required,email"); err != nil {
		return User{}, core.NewFieldError("user.email", "backup has no valid email")
	}
	if acct, ok := svc.reservedFor(usr.Email); ok && acct.ID != usr.ID {
		return User{}, reservedEmail(usr.Email)
	}
	usr.Normalize()

	unlock := svc.locks.Lock(usr.ID)
	defer unlock()

	owner, err := svc.repo.GetUserByEmail(usr.Email)
	switch {
	case err == nil && owner.ID != usr.ID:
		return User{}, core.NewError(core.ErrDuplicateEmail, "an account with this email already exists")
	case err != nil && !core.Is(err, core.ErrNotFound):
		return User{}, err
	}

	usr.LastLoginAt = core.NowFunc()
	if _, err = svc.repo.GetUserByID(usr.ID); err == nil {
		usr, err = svc.repo.SaveUser(usr)
	} else if core.Is(err, core.ErrNotFound) {
		usr, err = svc.repo.CreateUser(usr, Credential{UserID: usr.ID, Email: usr.Email})
	}
	if err != nil {
		return User{}, err
	}
	svc.log.Info("user imported", "user", usr.ID)
	return usr, svc.openSession(usr)
}
