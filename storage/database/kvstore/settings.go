package kvrepos

import (
	"github.com/trezcool/lms/core/settings"
	"github.com/trezcool/lms/storage/kv"
)

const settingsKey = "settings"

type settingsRepository struct {
	store *kv.Store
}

func NewSettingsRepository(store *kv.Store) settings.Repository {
	return &settingsRepository{store: store}
}

func (repo *settingsRepository) GetSettings() (settings.Settings, bool) {
	var s settings.Settings
	ok := repo.store.Get(settingsKey, &s)
	return s, ok
}

func (repo *settingsRepository) SaveSettings(s settings.Settings) error {
	return repo.store.Set(settingsKey, s)
}
