package main

import (
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	"github.com/trezcool/lms/core"
	"github.com/trezcool/lms/core/catalog"
	"github.com/trezcool/lms/core/certificate"
	"github.com/trezcool/lms/core/enrollment"
	"github.com/trezcool/lms/core/quiz"
	"github.com/trezcool/lms/core/settings"
	"github.com/trezcool/lms/core/user"
	"github.com/trezcool/lms/services/countdown"
	logsvc "github.com/trezcool/lms/services/logger"
	"github.com/trezcool/lms/storage/database/kvstore"
	"github.com/trezcool/lms/storage/kv"
)

// storeHandle bundles the opened store with its closer.
type storeHandle struct {
	store *kv.Store
	close func() error
}

func newLogger(conf *core.Config) (core.Logger, error) {
	if conf.Log.Mode == "off" {
		return logsvc.NewNop(), nil
	}
	base, err := logsvc.NewZapLogger(conf.Log.Mode, conf.Debug)
	if err != nil {
		return nil, errors.Wrap(err, "building logger")
	}
	return logsvc.NewRollbarLogger(base, conf), nil
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	return validate
}

func newCatalog(conf *core.Config) (catalog.Catalog, error) {
	return catalog.Load(conf.Catalog.Path)
}

func newStorage(conf *core.Config, logger core.Logger) (storeHandle, error) {
	store, closer, err := kvrepos.Open(conf, logger)
	if err != nil {
		return storeHandle{}, err
	}
	return storeHandle{store: store, close: closer}, nil
}

func newStore(s storeHandle) *kv.Store { return s.store }

func newCountdown(logger core.Logger) *countdown.Scheduler {
	return countdown.New(logger)
}

func newQuizEngine(
	conf *core.Config,
	users *user.Service,
	cat catalog.Catalog,
	cd *countdown.Scheduler,
	logger core.Logger,
) *quiz.Engine {
	return quiz.NewEngine(users, cat, cd, quiz.OptionsFromConfig(conf), logger)
}

// newContainer wires the application around conf.
func newContainer(conf *core.Config) *dig.Container {
	c := dig.New()

	must(c.Provide(func() *core.Config { return conf }))
	must(c.Provide(newLogger))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(newCatalog))
	must(c.Provide(newStorage))
	must(c.Provide(newStore))
	must(c.Provide(kvrepos.NewUserRepository))
	must(c.Provide(kvrepos.NewSettingsRepository))
	must(c.Provide(user.NewService))
	must(c.Provide(enrollment.NewService))
	must(c.Provide(certificate.NewService))
	must(c.Provide(settings.NewService))
	must(c.Provide(newCountdown))
	must(c.Provide(newQuizEngine))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
