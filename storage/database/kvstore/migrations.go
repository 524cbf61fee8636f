package kvrepos

import (
	"github.com/trezcool/lms/core/user"
	"github.com/trezcool/lms/storage/kv"
)

// Migrations upgrade persisted records to SchemaVersion.
var Migrations = []kv.Migration{
	{From: 1, Apply: normalizeUsers},
}

// normalizeUsers fills collections and preferences that version 1 records may lack, and lower-cases
// the credential index emails.
func normalizeUsers(s *kv.Store) error {
	keys, err := s.Keys(userPrefix)
	if err != nil {
		return err
	}
	for _, key := range keys {
		var usr user.User
		if !s.Get(key, &usr) {
			continue
		}
		usr.Normalize()
		usr.Email = user.CleanEmail(usr.Email)
		if err := s.Set(key, usr); err != nil {
			return err
		}
	}

	var index []user.Credential
	if !s.Get(usersKey, &index) {
		return nil
	}
	for i := range index {
		index[i].Email = user.CleanEmail(index[i].Email)
	}
	return s.Set(usersKey, index)
}
