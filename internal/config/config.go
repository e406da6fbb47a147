// Package config provides Viper-based configuration loading for the realm server.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds top-level server settings.
type ServerConfig struct {
	// Mode is the server operation mode. Only "standalone" is supported.
	Mode string `mapstructure:"mode"`
	// Name identifies this node in logs.
	Name string `mapstructure:"name"`
}

// StorageConfig selects the character store.
type StorageConfig struct {
	// Driver is one of "postgres", "sqlite" or "memory".
	Driver string `mapstructure:"driver"`
	// SQLitePath is the database file used by the sqlite driver.
	SQLitePath string `mapstructure:"sqlite_path"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// GameServerConfig holds the gRPC listener settings.
type GameServerConfig struct {
	GRPCHost string `mapstructure:"grpc_host"`
	GRPCPort int    `mapstructure:"grpc_port"`
}

// Addr returns the "host:port" gRPC address.
func (g GameServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", g.GRPCHost, g.GRPCPort)
}

// WebSocketConfig holds the zone feed listener settings.
type WebSocketConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	// SendBuffer is the number of events queued per connection before
	// further events for that connection are dropped.
	SendBuffer   int           `mapstructure:"send_buffer"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PongTimeout  time.Duration `mapstructure:"pong_timeout"`
}

// Addr returns the "host:port" listen address.
func (w WebSocketConfig) Addr() string {
	return fmt.Sprintf("%s:%d", w.Host, w.Port)
}

// ContentConfig locates the YAML template directories and zone scripts.
type ContentConfig struct {
	Monsters string `mapstructure:"monsters"`
	Items    string `mapstructure:"items"`
	Zones    string `mapstructure:"zones"`
	Quests   string `mapstructure:"quests"`
	// Scripts is the root of the per-zone Lua hook directories. Empty
	// disables scripting.
	Scripts string `mapstructure:"scripts"`
}

// GameConfig holds the gameplay tunables.
type GameConfig struct {
	StartingZone      string        `mapstructure:"starting_zone"`
	RespawnZone       string        `mapstructure:"respawn_zone"`
	DeathXPPenalty    float64       `mapstructure:"death_xp_penalty"`
	Carryover         string        `mapstructure:"carryover"`
	InventoryCapacity int           `mapstructure:"inventory_capacity"`
	ItemTTL           time.Duration `mapstructure:"item_ttl"`
	CurrencyTTL       time.Duration `mapstructure:"currency_ttl"`
	StoreTimeout      time.Duration `mapstructure:"store_timeout"`
	// Seed makes every roll reproducible when non-zero.
	Seed uint64 `mapstructure:"seed"`
}

// Config is the top-level application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	GameServer GameServerConfig `mapstructure:"gameserver"`
	WebSocket  WebSocketConfig  `mapstructure:"websocket"`
	Content    ContentConfig    `mapstructure:"content"`
	Game       GameConfig       `mapstructure:"game"`
}

// Validate checks all configuration invariants. Database settings are only
// checked when the postgres driver is selected.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	collect(validateServer(c.Server))
	collect(validateStorage(c.Storage))
	if c.Storage.Driver == "postgres" {
		collect(validateDatabase(c.Database))
	}
	collect(validateLogging(c.Logging))
	collect(validateGameServer(c.GameServer))
	if c.WebSocket.Enabled {
		collect(validateWebSocket(c.WebSocket))
	}
	collect(validateContent(c.Content))
	collect(validateGame(c.Game))

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func joined(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s", strings.Join(errs, "; "))
}

func validPort(p int) bool { return p >= 1 && p <= 65535 }

func validateServer(s ServerConfig) error {
	if s.Mode != "standalone" {
		return fmt.Errorf("server.mode must be one of [standalone], got %q", s.Mode)
	}
	return nil
}

func validateStorage(s StorageConfig) error {
	switch s.Driver {
	case "postgres", "memory":
		return nil
	case "sqlite":
		if s.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path must not be empty for the sqlite driver")
		}
		return nil
	default:
		return fmt.Errorf("storage.driver must be one of [postgres, sqlite, memory], got %q", s.Driver)
	}
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if !validPort(d.Port) {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	return joined(errs)
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateGameServer(g GameServerConfig) error {
	var errs []string
	if g.GRPCHost == "" {
		errs = append(errs, "gameserver.grpc_host must not be empty")
	}
	if !validPort(g.GRPCPort) {
		errs = append(errs, fmt.Sprintf("gameserver.grpc_port must be 1-65535, got %d", g.GRPCPort))
	}
	return joined(errs)
}

func validateWebSocket(w WebSocketConfig) error {
	var errs []string
	if !validPort(w.Port) {
		errs = append(errs, fmt.Sprintf("websocket.port must be 1-65535, got %d", w.Port))
	}
	if w.SendBuffer < 1 {
		errs = append(errs, fmt.Sprintf("websocket.send_buffer must be >= 1, got %d", w.SendBuffer))
	}
	if w.WriteTimeout <= 0 {
		errs = append(errs, "websocket.write_timeout must be positive")
	}
	if w.PongTimeout <= 0 {
		errs = append(errs, "websocket.pong_timeout must be positive")
	}
	return joined(errs)
}

func validateContent(c ContentConfig) error {
	var errs []string
	dirs := []struct{ key, dir string }{
		{"monsters", c.Monsters}, {"items", c.Items}, {"zones", c.Zones}, {"quests", c.Quests},
	}
	for _, d := range dirs {
		if d.dir == "" {
			errs = append(errs, fmt.Sprintf("content.%s must not be empty", d.key))
		}
	}
	return joined(errs)
}

func validateGame(g GameConfig) error {
	var errs []string
	if g.StartingZone == "" {
		errs = append(errs, "game.starting_zone must not be empty")
	}
	if g.RespawnZone == "" {
		errs = append(errs, "game.respawn_zone must not be empty")
	}
	if g.DeathXPPenalty < 0 || g.DeathXPPenalty > 1 {
		errs = append(errs, fmt.Sprintf("game.death_xp_penalty must be within [0, 1], got %g", g.DeathXPPenalty))
	}
	if g.Carryover != "carry" && g.Carryover != "reset" {
		errs = append(errs, fmt.Sprintf("game.carryover must be one of [carry, reset], got %q", g.Carryover))
	}
	if g.InventoryCapacity < 1 {
		errs = append(errs, fmt.Sprintf("game.inventory_capacity must be >= 1, got %d", g.InventoryCapacity))
	}
	if g.ItemTTL < 0 || g.CurrencyTTL < 0 {
		errs = append(errs, "game.item_ttl and game.currency_ttl must not be negative")
	}
	if g.StoreTimeout <= 0 {
		errs = append(errs, "game.store_timeout must be positive")
	}
	return joined(errs)
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := NewViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromViper(v)
}

// NewViper returns a Viper instance carrying the defaults and the REALM_
// environment overrides, e.g. REALM_DATABASE_HOST for database.host.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("REALM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.mode", "standalone")
	v.SetDefault("server.name", "realm")

	v.SetDefault("storage.driver", "postgres")
	v.SetDefault("storage.sqlite_path", "realm.db")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "realm")
	v.SetDefault("database.password", "realm")
	v.SetDefault("database.name", "realm")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("gameserver.grpc_host", "127.0.0.1")
	v.SetDefault("gameserver.grpc_port", 50051)

	v.SetDefault("websocket.enabled", true)
	v.SetDefault("websocket.host", "0.0.0.0")
	v.SetDefault("websocket.port", 8080)
	v.SetDefault("websocket.send_buffer", 256)
	v.SetDefault("websocket.write_timeout", "10s")
	v.SetDefault("websocket.pong_timeout", "60s")

	v.SetDefault("content.monsters", "content/monsters")
	v.SetDefault("content.items", "content/items")
	v.SetDefault("content.zones", "content/zones")
	v.SetDefault("content.quests", "content/quests")
	v.SetDefault("content.scripts", "content/scripts")

	v.SetDefault("game.starting_zone", "starting-village")
	v.SetDefault("game.respawn_zone", "starting-village")
	v.SetDefault("game.death_xp_penalty", 0.1)
	v.SetDefault("game.carryover", "carry")
	v.SetDefault("game.inventory_capacity", 20)
	v.SetDefault("game.item_ttl", "10m")
	v.SetDefault("game.currency_ttl", "5m")
	v.SetDefault("game.store_timeout", "2s")
	v.SetDefault("game.seed", 0)
}
