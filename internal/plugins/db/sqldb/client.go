package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	debuglog "github.com/gadzhilaev/smile-ai-tg/internal/log"
)

type SQLiteConfig struct {
	BusyTimeoutMs int
	WAL           bool
}

type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type Config struct {
	Driver      string
	DSN         string
	Pool        PoolConfig
	SQLite      SQLiteConfig
	AutoMigrate bool
}

func DefaultConfig() Config {
	return Config{
		Driver: "sqlite",
		DSN:    "support_bot.db",
		Pool: PoolConfig{
			MaxOpenConns: 1,
			MaxIdleConns: 1,
		},
		SQLite: SQLiteConfig{
			BusyTimeoutMs: 5000,
			WAL:           true,
		},
		AutoMigrate: true,
	}
}

// Client wraps a gorm connection and exposes typed repositories.
type Client struct {
	db *gorm.DB
}

// Open connects using cfg and migrates the schema when requested.
func Open(cfg Config) (*Client, error) {
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(gormLogLevel())}

	var (
		gdb *gorm.DB
		err error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "sqlite", "sqlite3":
		var conn *sql.DB
		if conn, err = sql.Open("sqlite3", SQLiteDSN(cfg.DSN, cfg.SQLite)); err != nil {
			return nil, errors.Wrap(err, "open sqlite")
		}
		gdb, err = gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite3", Conn: conn}), gormCfg)
	case "mysql":
		gdb, err = gorm.Open(mysql.Open(cfg.DSN), gormCfg)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "connect database")
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, errors.Wrap(err, "database handle")
	}
	if cfg.Pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.Pool.MaxOpenConns)
	}
	if cfg.Pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.Pool.MaxIdleConns)
	}
	if cfg.Pool.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.Pool.ConnMaxLifetime)
	}

	if cfg.AutoMigrate {
		if err = gdb.AutoMigrate(allModels()...); err != nil {
			return nil, errors.Wrap(err, "auto migrate")
		}
	}
	debuglog.Debug(debuglog.Basic, "database ready (driver=%s)\n", cfg.Driver)
	return &Client{db: gdb}, nil
}

// SQLiteDSN appends busy-timeout and journal pragmas understood by go-sqlite3.
func SQLiteDSN(path string, cfg SQLiteConfig) string {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultConfig().DSN
	}
	if strings.Contains(path, "?") {
		return path
	}
	var params []string
	if cfg.BusyTimeoutMs > 0 {
		params = append(params, fmt.Sprintf("_busy_timeout=%d", cfg.BusyTimeoutMs))
	}
	if cfg.WAL {
		params = append(params, "_journal_mode=WAL")
	}
	if len(params) == 0 {
		return path
	}
	return "file:" + path + "?" + strings.Join(params, "&")
}

func gormLogLevel() logger.LogLevel {
	if debuglog.GetLevel() >= debuglog.Wire {
		return logger.Info
	}
	return logger.Warn
}

// DB exposes the gorm handle for tests and maintenance commands.
func (c *Client) DB() *gorm.DB {
	return c.db
}

// Ping verifies the connection.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.db == nil {
		return fmt.Errorf("database client not initialized")
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying pool.
func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (c *Client) Messages() *MessageRepository {
	return &MessageRepository{db: c.db}
}

func (c *Client) Correlations() *CorrelationRepository {
	return &CorrelationRepository{db: c.db}
}

func (c *Client) Devices() *DeviceRepository {
	return &DeviceRepository{db: c.db}
}

func (c *Client) Modes() *ModeRepository {
	return &ModeRepository{db: c.db}
}

func (c *Client) Greetings() *GreetingRepository {
	return &GreetingRepository{db: c.db}
}
