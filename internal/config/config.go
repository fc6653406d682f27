// Package config assembles the service configuration from defaults, an
// optional JSON or YAML file, environment variables and command line flags,
// in that order of increasing priority.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// DevSessionSecret is used when no secret is configured. It is fine for local runs only.
const DevSessionSecret = "bookshelf-development-secret"

// Config holds every setting of the service.
type Config struct {
	RunAddr             string        `env:"SERVER_ADDRESS" validate:"hostname_port"`
	LogLevel            string        `env:"LOG_LEVEL" validate:"loglevel"`
	DatabaseDSN         string        `env:"DATABASE_DSN"`
	DBFileName          string        `env:"FILE_STORAGE_PATH" validate:"filepath"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT" validate:"gt=0"`
	RedisURL            string        `env:"REDIS_URL" validate:"omitempty,url"`
	SessionSecret       string        `env:"SESSION_SECRET" validate:"min=16"`
	SessionCookieName   string        `env:"SESSION_COOKIE_NAME" validate:"required"`
	SessionTTL          time.Duration `env:"SESSION_TTL" validate:"gt=0"`
	SecureCookie        bool          `env:"SECURE_COOKIE"`
	UploadDir           string        `env:"UPLOAD_DIR" validate:"required"`
	UploadURLPrefix     string        `env:"UPLOAD_URL_PREFIX" validate:"required,startswith=/"`
	MaxUploadSize       int64         `env:"MAX_UPLOAD_SIZE" validate:"gt=0"`
	S3Bucket            string        `env:"S3_BUCKET"`
	S3Region            string        `env:"S3_REGION" validate:"required_with=S3Bucket"`
	S3Endpoint          string        `env:"S3_ENDPOINT" validate:"omitempty,url"`
	S3AccessKey         string        `env:"S3_ACCESS_KEY" validate:"required_with=S3Bucket"`
	S3SecretKey         string        `env:"S3_SECRET_KEY" validate:"required_with=S3Bucket"`
	S3PublicURL         string        `env:"S3_PUBLIC_URL" validate:"omitempty,url"`
	Timezone            string        `env:"BOOK_OF_DAY_TZ" validate:"timezone"`
	ConfigFile          string        `env:"CONFIG"`
}

// fileConfig is the shape of the configuration file.
type fileConfig struct {
	RunAddr             string `json:"server_address" yaml:"server_address"`
	LogLevel            string `json:"log_level" yaml:"log_level"`
	DatabaseDSN         string `json:"database_dsn" yaml:"database_dsn"`
	DBFileName          string `json:"file_storage_path" yaml:"file_storage_path"`
	DBConnectionTimeout string `json:"db_connection_timeout" yaml:"db_connection_timeout"`
	RedisURL            string `json:"redis_url" yaml:"redis_url"`
	SessionSecret       string `json:"session_secret" yaml:"session_secret"`
	SessionCookieName   string `json:"session_cookie_name" yaml:"session_cookie_name"`
	SessionTTL          string `json:"session_ttl" yaml:"session_ttl"`
	SecureCookie        bool   `json:"secure_cookie" yaml:"secure_cookie"`
	UploadDir           string `json:"upload_dir" yaml:"upload_dir"`
	UploadURLPrefix     string `json:"upload_url_prefix" yaml:"upload_url_prefix"`
	MaxUploadSize       int64  `json:"max_upload_size" yaml:"max_upload_size"`
	S3Bucket            string `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region            string `json:"s3_region" yaml:"s3_region"`
	S3Endpoint          string `json:"s3_endpoint" yaml:"s3_endpoint"`
	S3AccessKey         string `json:"s3_access_key" yaml:"s3_access_key"`
	S3SecretKey         string `json:"s3_secret_key" yaml:"s3_secret_key"`
	S3PublicURL         string `json:"s3_public_url" yaml:"s3_public_url"`
	Timezone            string `json:"book_of_day_tz" yaml:"book_of_day_tz"`
}

var defaultConfig = Config{
	RunAddr:             ":3000",
	LogLevel:            "info",
	DBConnectionTimeout: 10 * time.Second,
	SessionSecret:       DevSessionSecret,
	SessionCookieName:   "bookshelf_session",
	SessionTTL:          24 * time.Hour,
	UploadDir:           "public/uploads",
	UploadURLPrefix:     "/uploads",
	MaxUploadSize:       10 << 20,
	Timezone:            "UTC",
}

type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
	args                []string
}

// WithDisableFlagsParsing skips the command line, used by tests.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// WithArgs parses the given arguments instead of os.Args[1:].
func WithArgs(args []string) InitOption {
	return func(options *initOptions) {
		options.args = args
	}
}

// New builds the configuration: defaults, then the file named by CONFIG or
// -c, then environment variables, then flags.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
		args:                os.Args[1:],
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Unable to load .env file: %v", err)
	}

	var fromFlags Config
	if !options.disableFlagsParsing {
		fromFlags, err = parseFlags(options.args)
		if err != nil {
			return nil, err
		}
	}

	var fromEnv Config
	if err := env.Parse(&fromEnv); err != nil {
		return nil, err
	}

	values := Config{}

	configFile := fromEnv.ConfigFile
	if fromFlags.ConfigFile != "" {
		configFile = fromFlags.ConfigFile
	}
	if configFile != "" {
		fromFile, err := readFile(configFile)
		if err != nil {
			return nil, err
		}
		overlay(&values, fromFile)
	}

	overlay(&values, fromEnv)
	overlay(&values, fromFlags)
	applyDefaults(&values, defaultConfig)

	if err := values.validate(); err != nil {
		return nil, err
	}

	return &values, nil
}

// IsDevSessionSecret reports whether the built-in development secret is in use.
func (c *Config) IsDevSessionSecret() bool {
	return c.SessionSecret == DevSessionSecret
}

// Location returns the time zone of the book of the day.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func parseFlags(args []string) (Config, error) {
	var values Config

	flags := flag.NewFlagSet(filepath.Base(os.Args[0]), flag.ContinueOnError)
	flags.StringVar(&values.RunAddr, "a", "", "address and port to run server")
	flags.StringVar(&values.LogLevel, "l", "", "logger level")
	flags.StringVar(&values.DatabaseDSN, "d", "", "a string with the database connection details")
	flags.StringVar(&values.DBFileName, "f", "", "JSON file name with database")
	flags.StringVar(&values.RedisURL, "r", "", "Redis URL for the session store")
	flags.StringVar(&values.SessionSecret, "s", "", "secret signing the session cookie")
	flags.StringVar(&values.UploadDir, "u", "", "directory for uploaded covers")
	flags.StringVar(&values.ConfigFile, "c", "", "JSON or YAML configuration file")
	flags.StringVar(&values.ConfigFile, "config", "", "JSON or YAML configuration file")

	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}

	return values, nil
}

func readFile(fileName string) (Config, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return Config{}, fmt.Errorf("in internal/config/config.go/readFile(): error while `os.ReadFile()` calling: %w", err)
	}

	var raw fileConfig
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return Config{}, fmt.Errorf("unable to parse config file %q: %w", fileName, err)
	}

	values := Config{
		RunAddr:           raw.RunAddr,
		LogLevel:          raw.LogLevel,
		DatabaseDSN:       raw.DatabaseDSN,
		DBFileName:        raw.DBFileName,
		RedisURL:          raw.RedisURL,
		SessionSecret:     raw.SessionSecret,
		SessionCookieName: raw.SessionCookieName,
		SecureCookie:      raw.SecureCookie,
		UploadDir:         raw.UploadDir,
		UploadURLPrefix:   raw.UploadURLPrefix,
		MaxUploadSize:     raw.MaxUploadSize,
		S3Bucket:          raw.S3Bucket,
		S3Region:          raw.S3Region,
		S3Endpoint:        raw.S3Endpoint,
		S3AccessKey:       raw.S3AccessKey,
		S3SecretKey:       raw.S3SecretKey,
		S3PublicURL:       raw.S3PublicURL,
		Timezone:          raw.Timezone,
	}

	if values.DBConnectionTimeout, err = parseDuration(raw.DBConnectionTimeout); err != nil {
		return Config{}, fmt.Errorf("invalid db_connection_timeout: %w", err)
	}
	if values.SessionTTL, err = parseDuration(raw.SessionTTL); err != nil {
		return Config{}, fmt.Errorf("invalid session_ttl: %w", err)
	}

	return values, nil
}

func parseDuration(value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}

	return time.ParseDuration(value)
}

// overlay copies every non-zero field of src over dst.
func overlay(dst *Config, src Config) {
	dstValue := reflect.ValueOf(dst).Elem()
	srcValue := reflect.ValueOf(src)
	for i := 0; i < srcValue.NumField(); i++ {
		if !srcValue.Field(i).IsZero() {
			dstValue.Field(i).Set(srcValue.Field(i))
		}
	}
}

// applyDefaults fills every zero field of values from defaults.
func applyDefaults(values *Config, defaults Config) {
	valuesValue := reflect.ValueOf(values).Elem()
	defaultsValue := reflect.ValueOf(defaults)
	for i := 0; i < valuesValue.NumField(); i++ {
		if valuesValue.Field(i).IsZero() {
			valuesValue.Field(i).Set(defaultsValue.Field(i))
		}
	}
}

func validateFilePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	if path == "" {
		return true
	}
	_, err := os.Stat(path)

	return err == nil || os.IsNotExist(err)
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	_, err := zapcore.ParseLevel(fieldLevel.Field().String())

	return err == nil
}

func (c *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("filepath", validateFilePath)
	if err != nil {
		return err
	}

	return validate.Struct(c)
}
