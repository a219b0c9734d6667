package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrFallbackRateRequired は既定の時給が設定されていない場合の設定エラーです。
var ErrFallbackRateRequired = errors.New("config: payroll.fallback_hourly_rate_cents must be set")

// 環境変数による上書き。
const (
	EnvDatabasePassword  = "DATABASE_PASSWORD"
	EnvTelegramToken     = "TELEGRAM_TOKEN"
	EnvDefaultHourlyRate = "DEFAULT_HOURLY_RATE_CENTS"
)

// Config はアプリケーション全体の設定を表現します。
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Payroll      PayrollConfig      `yaml:"payroll"`
	Confirmation ConfirmationConfig `yaml:"confirmation"`
	Telegram     TelegramConfig     `yaml:"telegram"`
	Log          LogConfig          `yaml:"log"`
}

// ServerConfig は gRPC サーバーに関する設定です。
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// DatabaseConfig は PostgreSQL 接続に関する設定です。
type DatabaseConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	User               string        `yaml:"user"`
	Password           string        `yaml:"password"`
	Name               string        `yaml:"name"`
	SSLMode            string        `yaml:"ssl_mode"`
	MaxOpenConns       int           `yaml:"max_open_conns"`
	MaxIdleConns       int           `yaml:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `yaml:"-"`
	ConnMaxIdleTime    time.Duration `yaml:"-"`
	ConnMaxLifetimeRaw string        `yaml:"conn_max_lifetime"`
	ConnMaxIdleTimeRaw string        `yaml:"conn_max_idle_time"`
}

// PayrollConfig は給与計算に関する設定です。
type PayrollConfig struct {
	FallbackHourlyRateCents int64 `yaml:"fallback_hourly_rate_cents"`
}

// ConfirmationConfig は前日の出勤確認に関する設定です。
// Enabled が未指定の場合は有効として扱います。
type ConfirmationConfig struct {
	Enabled             *bool          `yaml:"enabled"`
	Hour                *int           `yaml:"hour"`
	Minute              int            `yaml:"minute"`
	TimeZone            string         `yaml:"time_zone"`
	LookaheadDays       int            `yaml:"lookahead_days"`
	DeliveryConcurrency int            `yaml:"delivery_concurrency"`
	Location            *time.Location `yaml:"-"`
}

// TelegramConfig はメッセージチャネルの設定です。Token が空の場合チャネルは起動しません。
type TelegramConfig struct {
	Token          string        `yaml:"token"`
	PollTimeout    time.Duration `yaml:"-"`
	PollTimeoutRaw string        `yaml:"poll_timeout"`
}

// LogConfig はロガーの設定です。
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Load は指定されたパスから設定ファイルを読み込みます。
// カレントディレクトリに .env があれば環境変数として取り込み、上書きに使います。
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvDatabasePassword); ok && v != "" {
		c.Database.Password = v
	}
	if v, ok := lookup(EnvTelegramToken); ok && v != "" {
		c.Telegram.Token = v
	}
	if v, ok := lookup(EnvDefaultHourlyRate); ok && v != "" {
		cents, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvDefaultHourlyRate, err)
		}
		c.Payroll.FallbackHourlyRateCents = cents
	}
	return nil
}

func (c *Config) validateAndNormalize() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("config: server.listen_addr must be set")
	}

	if err := c.Database.validateAndNormalize(); err != nil {
		return err
	}

	if c.Payroll.FallbackHourlyRateCents <= 0 {
		return ErrFallbackRateRequired
	}

	if err := c.Confirmation.validateAndNormalize(); err != nil {
		return err
	}

	timeout, err := parseDurationAllowEmpty(c.Telegram.PollTimeoutRaw)
	if err != nil {
		return fmt.Errorf("config: telegram.poll_timeout: %w", err)
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	c.Telegram.PollTimeout = timeout

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	return nil
}

func (d *DatabaseConfig) validateAndNormalize() error {
	if d.Host == "" {
		return fmt.Errorf("config: database.host must be set")
	}
	if d.Port == 0 {
		return fmt.Errorf("config: database.port must be set")
	}
	if d.User == "" {
		return fmt.Errorf("config: database.user must be set")
	}
	if d.Password == "" {
		return fmt.Errorf("config: database.password must be set")
	}
	if d.Name == "" {
		return fmt.Errorf("config: database.name must be set")
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}

	lifetime, err := parseDurationAllowEmpty(d.ConnMaxLifetimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_lifetime: %w", err)
	}
	d.ConnMaxLifetime = lifetime

	idleTime, err := parseDurationAllowEmpty(d.ConnMaxIdleTimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_idle_time: %w", err)
	}
	d.ConnMaxIdleTime = idleTime

	return nil
}

func (c *ConfirmationConfig) validateAndNormalize() error {
	if c.Enabled == nil {
		enabled := true
		c.Enabled = &enabled
	}
	if c.Hour == nil {
		hour := 20
		c.Hour = &hour
	}
	if *c.Hour < 0 || *c.Hour > 23 {
		return fmt.Errorf("config: confirmation.hour must be within 0-23")
	}
	if c.Minute < 0 || c.Minute > 59 {
		return fmt.Errorf("config: confirmation.minute must be within 0-59")
	}
	if c.TimeZone == "" {
		c.TimeZone = "Europe/Rome"
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return fmt.Errorf("config: confirmation.time_zone: %w", err)
	}
	c.Location = loc
	if c.LookaheadDays < 0 {
		return fmt.Errorf("config: confirmation.lookahead_days must not be negative")
	}
	if c.LookaheadDays == 0 {
		c.LookaheadDays = 1
	}
	if c.DeliveryConcurrency <= 0 {
		c.DeliveryConcurrency = 4
	}
	return nil
}

// IsEnabled は出勤確認の定期実行が有効かを返します。
func (c ConfirmationConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// HourOrDefault は発火時刻（時）を返します。
func (c ConfirmationConfig) HourOrDefault() int {
	if c.Hour == nil {
		return 20
	}
	return *c.Hour
}

func parseDurationAllowEmpty(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	return d, nil
}

// DSN は pgx 用の接続文字列を返します。認証情報はエスケープされます。
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}
