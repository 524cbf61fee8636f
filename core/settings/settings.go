// Package settings keeps the application-wide display settings, independent of any user.
package settings

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/lms/core"
)

type Settings struct {
	Theme    string `json:"theme"`
	FontSize string `json:"fontSize"`
}

func Defaults() Settings {
	return Settings{Theme: "light", FontSize: "medium"}
}

// Update holds the settings to change. Nil fields are left unchanged.
type Update struct {
	Theme    *string `json:"theme" validate:"omitempty,oneof=light dark"`
	FontSize *string `json:"fontSize" validate:"omitempty,oneof=small medium large"`
}

type (
	Repository interface {
		GetSettings() (Settings, bool)
		SaveSettings(s Settings) error
	}

	Service struct {
		repo       Repository
		validate   *validator.Validate
		translator ut.Translator
	}
)

func NewService(repo Repository, validate *validator.Validate, translator ut.Translator) *Service {
	return &Service{repo: repo, validate: validate, translator: translator}
}

// Get returns the stored settings, defaults filling whatever was never set.
func (svc *Service) Get() Settings {
	def := Defaults()
	s, ok := svc.repo.GetSettings()
	if !ok {
		return def
	}
	if s.Theme == "" {
		s.Theme = def.Theme
	}
	if s.FontSize == "" {
		s.FontSize = def.FontSize
	}
	return s
}

func (svc *Service) Update(upd Update) (Settings, error) {
	if err := svc.validate.Struct(upd); err != nil {
		return Settings{}, core.TranslateValidation(err, svc.translator)
	}
	s := svc.Get()
	if upd.Theme != nil {
		s.Theme = *upd.Theme
	}
	if upd.FontSize != nil {
		s.FontSize = *upd.FontSize
	}
	if err := svc.repo.SaveSettings(s); err != nil {
		return Settings{}, err
	}
	return s, nil
}
