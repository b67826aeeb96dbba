// pkg/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config - главная структура конфигурации
type Config struct {
	App       AppConfig       `koanf:"app"`
	Server    ServerConfig    `koanf:"server"`
	Log       LogConfig       `koanf:"log"`
	Solver    SolverConfig    `koanf:"solver"`
	Database  DatabaseConfig  `koanf:"database"`
	Cache     CacheConfig     `koanf:"cache"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Tracing   TracingConfig   `koanf:"tracing"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
}

// AppConfig - общие настройки приложения
type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"` // development, staging, production
	Debug       bool   `koanf:"debug"`
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	MaxBodyBytes    int64         `koanf:"max_body_bytes"`
}

// Address возвращает полный адрес сервера
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig - настройки логирования
type LogConfig struct {
	Level      string `koanf:"level"`       // debug, info, warn, error
	Format     string `koanf:"format"`      // json, text
	Output     string `koanf:"output"`      // stdout, stderr, file
	FilePath   string `koanf:"file_path"`   // путь к файлу логов
	MaxSize    int    `koanf:"max_size"`    // MB
	MaxBackups int    `koanf:"max_backups"` // количество бэкапов
	MaxAge     int    `koanf:"max_age"`     // дней
	Compress   bool   `koanf:"compress"`
}

// SolverConfig - настройки решателя
type SolverConfig struct {
	DefaultStrategy    string        `koanf:"default_strategy"` // bellman-ford, karp
	Timeout            time.Duration `koanf:"timeout"`
	MaxIterations      int           `koanf:"max_iterations"` // 0 - без лимита
	MaxConcurrent      int           `koanf:"max_concurrent"`
	SelfCheck          bool          `koanf:"self_check"`
	AllowNegativeCosts bool          `koanf:"allow_negative_costs"`
	MaxNodes           int           `koanf:"max_nodes"` // лимит размера входного графа
	MaxEdges           int           `koanf:"max_edges"`
}

// DatabaseConfig - настройки базы данных
type DatabaseConfig struct {
	// Пустой host выключает хранение истории решений
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Database        string        `koanf:"database"`
	Username        string        `koanf:"username"`
	Password        string        `koanf:"password"`
	SSLMode         string        `koanf:"ssl_mode"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MinIdleConns    int           `koanf:"min_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// Enabled сообщает, настроено ли подключение к базе
func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// DSN возвращает строку подключения
func (d DatabaseConfig) DSN() string {
	if !d.Enabled() {
		return ""
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.Username, d.Password, d.Database, d.SSLMode,
	)
}

// CacheConfig - настройки кэширования результатов
type CacheConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Driver     string        `koanf:"driver"` // redis, memory
	Host       string        `koanf:"host"`
	Port       int           `koanf:"port"`
	Password   string        `koanf:"password"`
	DB         int           `koanf:"db"`
	DefaultTTL time.Duration `koanf:"default_ttl"`
	MaxEntries int           `koanf:"max_entries"` // для in-memory
}

// Address возвращает адрес кэша
func (c CacheConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MetricsConfig - настройки Prometheus метрик
type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Path      string `koanf:"path"`
	Namespace string `koanf:"namespace"`
	Subsystem string `koanf:"subsystem"`
}

// RateLimitConfig - настройки ограничения частоты запросов
type RateLimitConfig struct {
	Enabled   bool          `koanf:"enabled"`
	Requests  int           `koanf:"requests"`
	Window    time.Duration `koanf:"window"`
	Strategy  string        `koanf:"strategy"` // sliding_window, token_bucket, fixed_window
	Backend   string        `koanf:"backend"`  // memory, redis
	BurstSize int           `koanf:"burst_size"`

	// Redis используется при backend=redis
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
}

// TracingConfig - настройки OpenTelemetry
type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// Validate проверяет конфигурацию
func (c *Config) Validate() error {
	var errs []string

	if c.App.Name == "" {
		errs = append(errs, "app.name is required")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level must be one of: debug, info, warn, error, got %s", c.Log.Level))
	}

	validStrategies := map[string]bool{"": true, "bellman-ford": true, "karp": true}
	if !validStrategies[c.Solver.DefaultStrategy] {
		errs = append(errs, fmt.Sprintf("solver.default_strategy must be one of: bellman-ford, karp, got %s", c.Solver.DefaultStrategy))
	}

	if c.Solver.Timeout < 0 {
		errs = append(errs, "solver.timeout must be non-negative")
	}

	if c.Solver.MaxConcurrent <= 0 {
		errs = append(errs, fmt.Sprintf("solver.max_concurrent must be positive, got %d", c.Solver.MaxConcurrent))
	}

	validDrivers := map[string]bool{"memory": true, "redis": true}
	if c.Cache.Enabled && !validDrivers[strings.ToLower(c.Cache.Driver)] {
		errs = append(errs, fmt.Sprintf("cache.driver must be one of: memory, redis, got %s", c.Cache.Driver))
	}

	if c.RateLimit.Enabled && c.RateLimit.Requests <= 0 {
		errs = append(errs, fmt.Sprintf("rate_limit.requests must be positive, got %d", c.RateLimit.Requests))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// IsDevelopment проверяет режим разработки
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "dev"
}

// IsProduction проверяет продакшн режим
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production" || c.App.Environment == "prod"
}
