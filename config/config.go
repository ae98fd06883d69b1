package config

import (
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strings"

	"github.com/imdario/mergo"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
	yaml "gopkg.in/yaml.v2"
)

const DEVELOPMENT = "development"
const PRODUCTION = "production"

// Prefix of environment variables overriding the config file, e.g. EXPLORE_EVENT_TABLE.
const envPrefix = "explore"

var initiated bool = false

type Configuration struct {
	Env                 string `yaml:"env" envconfig:"ENV"`
	EventTable          string `yaml:"event_table" envconfig:"EVENT_TABLE"`
	DefaultMaxPathDepth int    `yaml:"default_max_path_depth" envconfig:"DEFAULT_MAX_PATH_DEPTH"`
	// Leave generated SQL on a single line. Tests assert on the unformatted text.
	DisableSQLFormat bool   `yaml:"disable_sql_format" envconfig:"DISABLE_SQL_FORMAT"`
	RateScale        int    `yaml:"rate_scale" envconfig:"RATE_SCALE"`
	LogLevel         string `yaml:"log_level" envconfig:"LOG_LEVEL"`
}

var defaultConfiguration = Configuration{
	Env:                 PRODUCTION,
	EventTable:          "ods_events",
	DefaultMaxPathDepth: 10,
	RateScale:           4,
	LogLevel:            "info",
}

var configuration *Configuration = nil

func initLogging() {
	// Log as JSON instead of the default ASCII formatter.
	log.SetFormatter(&log.JSONFormatter{})

	if level, err := log.ParseLevel(configuration.LogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.WithField("log_level", configuration.LogLevel).Warn("Invalid log level. Using info.")
		log.SetLevel(log.InfoLevel)
	}

	if IsDevelopment() {
		log.SetLevel(log.DebugLevel)
	}
}

func loadConfigFile(filePath string, conf *Configuration) error {
	configFileAbsPath, _ := filepath.Abs(filePath)

	logCtx := log.WithFields(log.Fields{
		"file": configFileAbsPath,
	})

	raw, err := ioutil.ReadFile(configFileAbsPath)
	if err != nil {
		logCtx.WithError(err).Error("Failed to load config")
		return err
	}

	if err := yaml.Unmarshal(raw, conf); err != nil {
		logCtx.WithError(err).Error("Failed to unmarshal yaml")
		return err
	}
	logCtx.Info("Config File Loaded")
	return nil
}

// load builds a configuration from the optional file, the environment and the defaults,
// in decreasing order of precedence: environment, file, defaults.
func load(filePath string) (*Configuration, error) {
	conf := &Configuration{}
	if filePath != "" {
		if err := loadConfigFile(filePath, conf); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process(envPrefix, conf); err != nil {
		log.WithError(err).Error("Failed to read config from environment")
		return nil, err
	}

	if err := mergo.Merge(conf, defaultConfiguration); err != nil {
		log.WithError(err).Error("Failed to merge default config")
		return nil, err
	}

	if conf.DefaultMaxPathDepth < 1 {
		return nil, fmt.Errorf("invalid default_max_path_depth %d", conf.DefaultMaxPathDepth)
	}
	if conf.RateScale < 0 || conf.RateScale > 20 {
		return nil, fmt.Errorf("invalid rate_scale %d", conf.RateScale)
	}
	return conf, nil
}

// Init loads the configuration once per process. An empty filePath skips the file.
func Init(filePath string) error {
	if initiated {
		return fmt.Errorf("Config already initialized")
	}

	conf, err := load(filePath)
	if err != nil {
		return err
	}
	configuration = conf
	initLogging()

	log.WithFields(log.Fields{"config": configuration}).Debug("Config initialized.")
	initiated = true
	return nil
}

// InitConf sets the configuration directly. Missing values take defaults. Used by tests.
func InitConf(c *Configuration) {
	conf := &Configuration{}
	if c != nil {
		*conf = *c
	}
	if err := mergo.Merge(conf, defaultConfiguration); err != nil {
		log.WithError(err).Error("Failed to merge default config")
	}
	configuration = conf
}

// GetConfig returns the loaded configuration, or the defaults before Init.
func GetConfig() *Configuration {
	if configuration == nil {
		conf := defaultConfiguration
		return &conf
	}
	return configuration
}

func IsDevelopment() bool {
	return (strings.Compare(GetConfig().Env, DEVELOPMENT) == 0)
}

func GetEventTable() string {
	return GetConfig().EventTable
}

func GetDefaultMaxPathDepth() int {
	return GetConfig().DefaultMaxPathDepth
}

func IsSQLFormatEnabled() bool {
	return !GetConfig().DisableSQLFormat
}

func GetRateScale() int {
	return GetConfig().RateScale
}
