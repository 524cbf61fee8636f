package user

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/lms/core"
)

// Hasher turns a password into the value kept in the credential index.
type Hasher interface {
	Hash(pwd string) (string, error)
	Compare(hash, pwd string) bool
}

// NewHasher returns the hasher configured by name (core.HasherChecksum or core.HasherBcrypt).
func NewHasher(name string) Hasher {
	if name == core.HasherBcrypt {
		return bcryptHasher{cost: bcrypt.DefaultCost}
	}
	return checksumHasher{}
}

// checksumHasher stores the 32-bit rolling checksum of the password.
// It is compatible with data written by earlier versions and offers no protection at all.
type checksumHasher struct{}

func (checksumHasher) Hash(pwd string) (string, error) {
	return core.ChecksumString(pwd), nil
}

func (checksumHasher) Compare(hash, pwd string) bool {
	return hash != "" && hash == core.ChecksumString(pwd)
}

type bcryptHasher struct {
	cost int
}

func (h bcryptHasher) Hash(pwd string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (h bcryptHasher) Compare(hash, pwd string) bool {
	return hash != "" && bcrypt.CompareHashAndPassword([]byte(hash), []byte(pwd)) == nil
}
