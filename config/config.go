package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v2"

	"github.com/kashee337/ac_store/logger"
	"github.com/kashee337/ac_store/store"
)

var ErrInvalidConfig = errors.New("invalid config")

type Conf struct {
	DbPath   string `yaml:"db_path" env:"AC_STORE_DB_PATH"`
	LogLevel string `yaml:"log_level" env:"AC_STORE_LOG_LEVEL"`
	SqlTrace bool   `yaml:"sql_trace" env:"AC_STORE_SQL_TRACE"`

	FirstAgcEpochSecond int64  `yaml:"first_agc_epoch_second" env:"AC_STORE_FIRST_AGC_EPOCH_SECOND"`
	UnratedState        string `yaml:"unrated_state" env:"AC_STORE_UNRATED_STATE"`

	// Judge dumps to ingest. Empty paths are skipped.
	ContestsPath     string `yaml:"contests_path" env:"AC_STORE_CONTESTS_PATH"`
	ProblemsPath     string `yaml:"problems_path" env:"AC_STORE_PROBLEMS_PATH"`
	SubmissionsPath  string `yaml:"submissions_path" env:"AC_STORE_SUBMISSIONS_PATH"`
	PerformancesPath string `yaml:"performances_path" env:"AC_STORE_PERFORMANCES_PATH"`

	WebhookUrl     string `yaml:"webhook_url" env:"AC_STORE_WEBHOOK_URL"`
	PushgatewayUrl string `yaml:"pushgateway_url" env:"AC_STORE_PUSHGATEWAY_URL"`
}

func Default() Conf {
	return Conf{
		DbPath:              "ac_store.db",
		LogLevel:            "info",
		FirstAgcEpochSecond: store.FirstAGCEpochSecond,
		UnratedState:        store.UnratedState,
	}
}

// ReadConf layers defaults, the YAML file at yaml_path (skipped when
// empty) and AC_STORE_* environment variables, then validates the result.
func ReadConf(yaml_path string) (Conf, error) {
	p := Default()
	if yaml_path != "" {
		buf, err := os.ReadFile(yaml_path)
		if err != nil {
			return p, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.UnmarshalStrict(buf, &p); err != nil {
			return p, fmt.Errorf("parse config %s: %w", yaml_path, err)
		}
	}
	if err := env.Parse(&p); err != nil {
		return p, fmt.Errorf("parse env: %w", err)
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

func (c Conf) Validate() error {
	if strings.TrimSpace(c.DbPath) == "" {
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.FirstAgcEpochSecond < 0 {
		return fmt.Errorf("%w: first_agc_epoch_second must not be negative", ErrInvalidConfig)
	}
	if c.UnratedState == "" {
		return fmt.Errorf("%w: unrated_state must not be empty", ErrInvalidConfig)
	}
	return nil
}

func (c Conf) EligibilityPolicy() store.EligibilityPolicy {
	return store.EligibilityPolicy{
		FirstAGCEpochSecond: c.FirstAgcEpochSecond,
		UnratedState:        c.UnratedState,
	}
}
