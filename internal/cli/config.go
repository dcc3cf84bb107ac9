package cli

import (
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/gadzhilaev/smile-ai-tg/internal/core"
	"github.com/gadzhilaev/smile-ai-tg/internal/plugins/blob"
	"github.com/gadzhilaev/smile-ai-tg/internal/plugins/db/sqldb"
	"github.com/gadzhilaev/smile-ai-tg/internal/plugins/push"
	"github.com/gadzhilaev/smile-ai-tg/internal/plugins/transport/telegram"
	restapi "github.com/gadzhilaev/smile-ai-tg/internal/server"
	"github.com/gadzhilaev/smile-ai-tg/internal/util"
)

const envPrefix = "SMILE"

type SupportConfig struct {
	Timeout      time.Duration
	KeywordsFile string
	Locale       string
	HistoryLimit int
	Timezone     string
}

type PushConfig struct {
	FCM  push.FCMConfig
	APNs push.APNsConfig
}

type UploadsConfig struct {
	Dir        string
	MaxBytes   int64
	PublicBase string
	S3         blob.S3Config
}

type LoggingConfig struct {
	Level  int
	Format string
}

// Config is everything the relay needs at startup.
type Config struct {
	Server   restapi.Config
	Telegram telegram.Config
	DB       sqldb.Config
	Support  SupportConfig
	AI       core.ResponderConfig
	Push     PushConfig
	Uploads  UploadsConfig
	Logging  LoggingConfig
}

// envNames keeps the variable names deployments already use.
var envNames = map[string]string{
	"server.host":               "SERVER_HOST",
	"server.port":               "SERVER_PORT",
	"server.api_key":            "API_SECRET_KEY",
	"telegram.token":            "BOT_TOKEN",
	"telegram.group_chat_id":    "GROUP_CHAT_ID",
	"db.dsn":                    "DATABASE_DSN",
	"support.timeout":           "SUPPORT_MODE_TIMEOUT",
	"ai.api_key":                "OPENROUTER_API_KEY",
	"ai.model":                  "OPENROUTER_MODEL",
	"ai.base_url":               "OPENROUTER_BASE_URL",
	"push.fcm_project_id":       "FCM_PROJECT_ID",
	"push.fcm_credentials_file": "FCM_CREDENTIALS_FILE",
	"push.apns_key_id":          "APNS_KEY_ID",
	"push.apns_team_id":         "APNS_TEAM_ID",
	"push.apns_bundle_id":       "APNS_BUNDLE_ID",
	"push.apns_key_path":        "APNS_KEY_PATH",
	"push.apns_sandbox":         "APNS_USE_SANDBOX",
	"uploads.dir":               "UPLOAD_FOLDER",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", restapi.DefaultHost)
	v.SetDefault("server.port", restapi.DefaultPort)
	v.SetDefault("telegram.base_url", telegram.DefaultBaseURL)
	v.SetDefault("telegram.poll_timeout", telegram.DefaultPollTimeout)
	v.SetDefault("telegram.rate_per_minute", telegram.DefaultRatePerMinute)

	db := sqldb.DefaultConfig()
	v.SetDefault("db.driver", db.Driver)
	v.SetDefault("db.dsn", db.DSN)
	v.SetDefault("db.max_open_conns", db.Pool.MaxOpenConns)
	v.SetDefault("db.max_idle_conns", db.Pool.MaxIdleConns)
	v.SetDefault("db.conn_max_lifetime", db.Pool.ConnMaxLifetime)
	v.SetDefault("db.busy_timeout_ms", db.SQLite.BusyTimeoutMs)
	v.SetDefault("db.wal", db.SQLite.WAL)

	v.SetDefault("support.timeout", core.DefaultModeTimeout)
	v.SetDefault("support.locale", "ru")
	v.SetDefault("support.history_limit", core.DefaultHistoryLimit)
	v.SetDefault("support.timezone", "Local")

	v.SetDefault("ai.vendor", "openrouter")
	v.SetDefault("ai.max_tokens", 1000)
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.timeout", 30*time.Second)
	v.SetDefault("ai.referer", "https://smile-ai-tg.app")
	v.SetDefault("ai.title", "Smile AI Support")

	v.SetDefault("uploads.dir", "uploads")
	v.SetDefault("uploads.max_bytes", restapi.DefaultMaxUploadBytes)
	v.SetDefault("uploads.public_base", "/uploads")
	v.SetDefault("uploads.s3_region", "us-east-1")

	v.SetDefault("logging.level", 0)
	v.SetDefault("logging.format", "text")
}

// newViper loads .env (when present), binds the environment and reads
// configFile when given.
func newViper(configFile string) (*viper.Viper, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(err, "load .env")
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, env := range envNames {
		if err := v.BindEnv(key, envPrefix+"_"+strings.ToUpper(strings.NewReplacer(".", "_").Replace(key)), env); err != nil {
			return nil, errors.Wrapf(err, "bind %s", key)
		}
	}

	if configFile == "" {
		var err error
		if configFile, err = util.DefaultConfigPath(); err != nil {
			return nil, err
		}
	}
	if configFile != "" {
		path, err := util.ExpandPath(configFile)
		if err != nil {
			return nil, err
		}
		v.SetConfigFile(path)
		if err = v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}
	return v, nil
}

func loadConfig(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: restapi.Config{
			Host:           v.GetString("server.host"),
			Port:           v.GetInt("server.port"),
			APIKey:         v.GetString("server.api_key"),
			MaxUploadBytes: v.GetInt64("uploads.max_bytes"),
		},
		Telegram: telegram.Config{
			Token:         v.GetString("telegram.token"),
			GroupChatID:   v.GetString("telegram.group_chat_id"),
			BaseURL:       v.GetString("telegram.base_url"),
			PollTimeout:   v.GetDuration("telegram.poll_timeout"),
			RatePerMinute: v.GetInt("telegram.rate_per_minute"),
		},
		DB: sqldb.Config{
			Driver: v.GetString("db.driver"),
			DSN:    v.GetString("db.dsn"),
			Pool: sqldb.PoolConfig{
				MaxOpenConns:    v.GetInt("db.max_open_conns"),
				MaxIdleConns:    v.GetInt("db.max_idle_conns"),
				ConnMaxLifetime: v.GetDuration("db.conn_max_lifetime"),
			},
			SQLite: sqldb.SQLiteConfig{
				BusyTimeoutMs: v.GetInt("db.busy_timeout_ms"),
				WAL:           v.GetBool("db.wal"),
			},
			AutoMigrate: true,
		},
		Support: SupportConfig{
			Timeout:      parseTimeout(v.GetString("support.timeout")),
			KeywordsFile: v.GetString("support.keywords_file"),
			Locale:       v.GetString("support.locale"),
			HistoryLimit: v.GetInt("support.history_limit"),
			Timezone:     v.GetString("support.timezone"),
		},
		AI: core.ResponderConfig{
			Vendor:      v.GetString("ai.vendor"),
			APIKey:      v.GetString("ai.api_key"),
			Model:       v.GetString("ai.model"),
			BaseURL:     v.GetString("ai.base_url"),
			MaxTokens:   v.GetInt64("ai.max_tokens"),
			Temperature: v.GetFloat64("ai.temperature"),
			Timeout:     v.GetDuration("ai.timeout"),
			Referer:     v.GetString("ai.referer"),
			Title:       v.GetString("ai.title"),
		},
		Push: PushConfig{
			FCM: push.FCMConfig{
				ProjectID:       v.GetString("push.fcm_project_id"),
				CredentialsFile: v.GetString("push.fcm_credentials_file"),
			},
			APNs: push.APNsConfig{
				KeyID:    v.GetString("push.apns_key_id"),
				TeamID:   v.GetString("push.apns_team_id"),
				BundleID: v.GetString("push.apns_bundle_id"),
				KeyPath:  v.GetString("push.apns_key_path"),
				Sandbox:  v.GetBool("push.apns_sandbox"),
			},
		},
		Uploads: UploadsConfig{
			Dir:        v.GetString("uploads.dir"),
			MaxBytes:   v.GetInt64("uploads.max_bytes"),
			PublicBase: v.GetString("uploads.public_base"),
			S3: blob.S3Config{
				Bucket:     v.GetString("uploads.s3_bucket"),
				Region:     v.GetString("uploads.s3_region"),
				Endpoint:   v.GetString("uploads.s3_endpoint"),
				AccessKey:  v.GetString("uploads.s3_access_key"),
				SecretKey:  v.GetString("uploads.s3_secret_key"),
				Prefix:     v.GetString("uploads.s3_prefix"),
				PublicBase: v.GetString("uploads.s3_public_base"),
			},
		},
		Logging: LoggingConfig{
			Level:  v.GetInt("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}
	return cfg, cfg.validate()
}

// parseTimeout accepts a Go duration or, like SUPPORT_MODE_TIMEOUT always
// did, a bare number of seconds.
func parseTimeout(raw string) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return core.DefaultModeTimeout
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if d, err := time.ParseDuration(raw + "s"); err == nil {
		return d
	}
	return core.DefaultModeTimeout
}

func (c *Config) validate() error {
	if c.Support.Timeout <= 0 {
		return errors.New("support.timeout must be positive")
	}
	if c.Uploads.MaxBytes <= 0 {
		return errors.New("uploads.max_bytes must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location is the zone in which the greeting calendar day is computed.
func (c *Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Support.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, errors.Wrapf(err, "support.timezone %q", name)
	}
	return loc, nil
}
