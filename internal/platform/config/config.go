package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// LockBackend は候補者単位の排他制御の実装種別です。
type LockBackend string

const (
	LockBackendMemory   LockBackend = "memory"
	LockBackendRedis    LockBackend = "redis"
	LockBackendPostgres LockBackend = "postgres"
)

const (
	defaultRedisChannel    = "candidate.lifecycle"
	defaultLockTTL         = 10 * time.Second
	defaultConflictRetries = 2
	defaultConflictBackoff = 50 * time.Millisecond
	defaultFollowUpSpec    = "0 9 * * *"
)

// Config はアプリケーション全体の設定を表現します。
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Lifecycle LifecycleConfig `yaml:"lifecycle"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ServerConfig は gRPC サーバーに関する設定です。
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	LogLevel   string `yaml:"log_level"`
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

// RedisConfig はイベント通知と分散ロックに使う Redis の設定です。URL が空の場合 Redis は使いません。
type RedisConfig struct {
	URL     string `yaml:"url"`
	Channel string `yaml:"channel"`
}

// Enabled は Redis 接続先が設定されているかを返します。
func (r RedisConfig) Enabled() bool {
	return r.URL != ""
}

// LifecycleConfig は遷移エンジンの排他制御と再試行の設定です。
type LifecycleConfig struct {
	LockBackend        LockBackend   `yaml:"lock_backend"`
	LockTTL            time.Duration `yaml:"-"`
	LockTTLRaw         string        `yaml:"lock_ttl"`
	ConflictRetries    *int          `yaml:"conflict_retries"`
	ConflictBackoff    time.Duration `yaml:"-"`
	ConflictBackoffRaw string        `yaml:"conflict_backoff"`
}

// SchedulerConfig はフォローアップ通知ジョブの設定です。FollowUpSpec が "-" の場合ジョブを登録しません。
type SchedulerConfig struct {
	FollowUpSpec string `yaml:"follow_up_spec"`
}

// Enabled はジョブを登録するかを返します。
func (s SchedulerConfig) Enabled() bool {
	return s.FollowUpSpec != "-"
}

// Load は指定されたパスから設定ファイルを読み込みます。
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	cfg.applyEnv(os.LookupEnv)

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnv は CANDIDATE_ で始まる環境変数で一部の値を上書きします。コンテナ実行時の接続先切り替えに使います。
func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("CANDIDATE_LISTEN_ADDR"); ok && v != "" {
		c.Server.ListenAddr = v
	}
	if v, ok := lookup("CANDIDATE_DB_HOST"); ok && v != "" {
		c.Database.Host = v
	}
	if v, ok := lookup("CANDIDATE_DB_PORT"); ok && v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Database.Port = port
		}
	}
	if v, ok := lookup("CANDIDATE_DB_PASSWORD"); ok && v != "" {
		c.Database.Password = v
	}
	if v, ok := lookup("CANDIDATE_REDIS_URL"); ok {
		c.Redis.URL = v
	}
}

func (c *Config) validateAndNormalize() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("config: server.listen_addr must be set")
	}
	if _, _, err := net.SplitHostPort(c.Server.ListenAddr); err != nil {
		return fmt.Errorf("config: server.listen_addr: %w", err)
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}

	db := &c.Database
	if err := db.validateAndNormalize(); err != nil {
		return err
	}

	if err := c.Redis.validateAndNormalize(); err != nil {
		return err
	}

	if err := c.Lifecycle.validateAndNormalize(c.Redis); err != nil {
		return err
	}

	if err := c.Scheduler.validateAndNormalize(); err != nil {
		return err
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

func (r *RedisConfig) validateAndNormalize() error {
	if r.URL != "" {
		u, err := url.Parse(r.URL)
		if err != nil {
			return fmt.Errorf("config: redis.url: %w", err)
		}
		if u.Scheme != "redis" && u.Scheme != "rediss" {
			return fmt.Errorf("config: redis.url must use redis:// or rediss://")
		}
	}
	if r.Channel == "" {
		r.Channel = defaultRedisChannel
	}
	return nil
}

func (l *LifecycleConfig) validateAndNormalize(redis RedisConfig) error {
	switch l.LockBackend {
	case "":
		l.LockBackend = LockBackendMemory
	case LockBackendMemory, LockBackendPostgres:
	case LockBackendRedis:
		if !redis.Enabled() {
			return fmt.Errorf("config: lifecycle.lock_backend redis requires redis.url")
		}
	default:
		return fmt.Errorf("config: lifecycle.lock_backend %q is not supported", l.LockBackend)
	}

	ttl, err := parseDurationAllowEmpty(l.LockTTLRaw)
	if err != nil {
		return fmt.Errorf("config: lifecycle.lock_ttl: %w", err)
	}
	if ttl == 0 {
		ttl = defaultLockTTL
	}
	l.LockTTL = ttl

	if l.ConflictRetries == nil {
		n := defaultConflictRetries
		l.ConflictRetries = &n
	}
	if *l.ConflictRetries < 0 {
		return fmt.Errorf("config: lifecycle.conflict_retries must not be negative")
	}

	wait, err := parseDurationAllowEmpty(l.ConflictBackoffRaw)
	if err != nil {
		return fmt.Errorf("config: lifecycle.conflict_backoff: %w", err)
	}
	if l.ConflictBackoffRaw == "" {
		wait = defaultConflictBackoff
	}
	l.ConflictBackoff = wait

	return nil
}

func (s *SchedulerConfig) validateAndNormalize() error {
	s.FollowUpSpec = strings.TrimSpace(s.FollowUpSpec)
	if s.FollowUpSpec == "" {
		s.FollowUpSpec = defaultFollowUpSpec
	}
	if !s.Enabled() {
		return nil
	}
	if _, err := cron.ParseStandard(s.FollowUpSpec); err != nil {
		return fmt.Errorf("config: scheduler.follow_up_spec: %w", err)
	}
	return nil
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

// DSN は pgx 用の接続文字列を返します。認証情報は URL エンコードされます。
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}
