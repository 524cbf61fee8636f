package core

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Credential hashers
const (
	HasherChecksum = "checksum"
	HasherBcrypt   = "bcrypt"
)

// Storage drivers
const (
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

type Config struct {
	Env      string
	AppName  string
	Build    string
	Debug    bool
	TestMode bool
	HomeDir  string

	Storage struct {
		Driver        string
		Path          string
		Prefix        string
		QuotaBytes    int64
		TempRetention time.Duration
	}

	Session struct {
		Timeout time.Duration
	}

	Auth struct {
		Hasher       string
		DemoAccounts bool
	}

	Quiz struct {
		DefaultPassingScore int
		DefaultTimeLimit    time.Duration
		TickInterval        time.Duration
		DedupCertificates   bool
	}

	Catalog struct {
		Path string
	}

	Log struct {
		Mode         string
		RollbarToken string
	}
}

// NewConfig loads the configuration from defaults, an optional `config/.env.<env>` file and the environment.
// Environment variables are prefixed with the upper-cased env name, e.g. DEV_STORAGE_DRIVER=memory.
func NewConfig() (*Config, error) {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Masomo LMS")
	v.SetDefault("build", "dev")
	v.SetDefault("storage.driver", StorageSQLite)
	v.SetDefault("storage.path", filepath.Join("data", "lms.db"))
	v.SetDefault("storage.prefix", "lms_")
	v.SetDefault("storage.quotaBytes", int64(5*1024*1024))
	v.SetDefault("storage.tempRetention", 30*24*time.Hour)
	v.SetDefault("session.timeout", 24*time.Hour)
	v.SetDefault("auth.hasher", HasherChecksum)
	v.SetDefault("auth.demoAccounts", true)
	v.SetDefault("quiz.defaultPassingScore", 70)
	v.SetDefault("quiz.defaultTimeLimit", 15*time.Minute)
	v.SetDefault("quiz.tickInterval", time.Second)
	v.SetDefault("quiz.dedupCertificates", false)
	v.SetDefault("catalog.path", "")
	v.SetDefault("log.mode", "dev")
	v.SetDefault("rollbarToken", "")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
		v.SetDefault("storage.driver", StorageMemory)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	home := homeDir()
	dotEnvPath := filepath.Join(home, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:      env,
		AppName:  v.GetString("appName"),
		Build:    v.GetString("build"),
		Debug:    v.GetBool("debug"),
		TestMode: v.GetBool("testMode"),
		HomeDir:  home,
	}
	conf.Storage.Driver = strings.ToLower(v.GetString("storage.driver"))
	conf.Storage.Path = v.GetString("storage.path")
	conf.Storage.Prefix = v.GetString("storage.prefix")
	conf.Storage.QuotaBytes = v.GetInt64("storage.quotaBytes")
	conf.Storage.TempRetention = v.GetDuration("storage.tempRetention")
	conf.Session.Timeout = v.GetDuration("session.timeout")
	conf.Auth.Hasher = strings.ToLower(v.GetString("auth.hasher"))
	conf.Auth.DemoAccounts = v.GetBool("auth.demoAccounts")
	conf.Quiz.DefaultPassingScore = v.GetInt("quiz.defaultPassingScore")
	conf.Quiz.DefaultTimeLimit = v.GetDuration("quiz.defaultTimeLimit")
	conf.Quiz.TickInterval = v.GetDuration("quiz.tickInterval")
	conf.Quiz.DedupCertificates = v.GetBool("quiz.dedupCertificates")
	conf.Catalog.Path = v.GetString("catalog.path")
	conf.Log.Mode = v.GetString("log.mode")
	conf.Log.RollbarToken = v.GetString("rollbarToken")

	if err := conf.validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func (conf *Config) validate() error {
	switch conf.Storage.Driver {
	case StorageSQLite, StorageMemory:
	default:
		return errors.Errorf("config: unknown storage.driver %q", conf.Storage.Driver)
	}
	switch conf.Auth.Hasher {
	case HasherChecksum, HasherBcrypt:
	default:
		return errors.Errorf("config: unknown auth.hasher %q", conf.Auth.Hasher)
	}
	if conf.Quiz.DefaultPassingScore < 0 || conf.Quiz.DefaultPassingScore > 100 {
		return errors.Errorf("config: quiz.defaultPassingScore must be within 0..100, got %d", conf.Quiz.DefaultPassingScore)
	}
	if conf.Quiz.TickInterval <= 0 {
		return errors.New("config: quiz.tickInterval must be positive")
	}
	return nil
}

// homeDir returns LMS_HOME if set, the working directory otherwise.
func homeDir() string {
	if home := os.Getenv("LMS_HOME"); home != "" {
		return home
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
