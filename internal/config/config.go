// Package config resolves rpsd settings from flags, RPSD_* environment
// variables and an optional <home>/config/app.toml, in that order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cosmossdk.io/log"
	dbm "github.com/cosmos/cosmos-db"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"onchainrps/internal/engine"
)

const EnvPrefix = "RPSD"

const (
	KeyHome         = "home"
	KeyAddr         = "addr"
	KeyTransport    = "transport"
	KeyDBBackend    = "db_backend"
	KeyLogLevel     = "log_level"
	KeyJoinWindow   = "join_window"
	KeyRevealWindow = "reveal_window"
)

type Config struct {
	Home         string
	Addr         string
	Transport    string
	DBBackend    string
	LogLevel     string
	JoinWindow   time.Duration
	RevealWindow time.Duration
}

func Default() Config {
	p := engine.DefaultParams()
	return Config{
		Home:         ".rpsd",
		Addr:         "tcp://127.0.0.1:26658",
		Transport:    "socket",
		DBBackend:    string(dbm.GoLevelDBBackend),
		LogLevel:     zerolog.InfoLevel.String(),
		JoinWindow:   p.JoinWindow,
		RevealWindow: p.RevealWindow,
	}
}

func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

// BindFlags registers every setting on fs and binds it into v.
func BindFlags(fs *pflag.FlagSet, v *viper.Viper) error {
	d := Default()
	fs.String(flagName(KeyHome), d.Home, "app home directory (state under <home>/data)")
	fs.String(flagName(KeyAddr), d.Addr, "ABCI listen address")
	fs.String(flagName(KeyTransport), d.Transport, "ABCI transport (socket|grpc)")
	fs.String(flagName(KeyDBBackend), d.DBBackend, "database backend (goleveldb|memdb)")
	fs.String(flagName(KeyLogLevel), d.LogLevel, "log level (trace|debug|info|warn|error)")
	fs.Duration(flagName(KeyJoinWindow), d.JoinWindow, "time the opponent has to join")
	fs.Duration(flagName(KeyRevealWindow), d.RevealWindow, "time players have to reveal")

	for _, key := range []string{KeyHome, KeyAddr, KeyTransport, KeyDBBackend, KeyLogLevel, KeyJoinWindow, KeyRevealWindow} {
		if err := v.BindPFlag(key, fs.Lookup(flagName(key))); err != nil {
			return fmt.Errorf("bind flag %s: %w", key, err)
		}
	}
	return nil
}

// Load reads the effective configuration out of v.
func Load(v *viper.Viper) (Config, error) {
	d := Default()
	v.SetDefault(KeyHome, d.Home)
	v.SetDefault(KeyAddr, d.Addr)
	v.SetDefault(KeyTransport, d.Transport)
	v.SetDefault(KeyDBBackend, d.DBBackend)
	v.SetDefault(KeyLogLevel, d.LogLevel)
	v.SetDefault(KeyJoinWindow, d.JoinWindow)
	v.SetDefault(KeyRevealWindow, d.RevealWindow)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	path := filepath.Join(v.GetString(KeyHome), "config", "app.toml")
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("stat %s: %w", path, err)
	}

	cfg := Config{
		Home:         v.GetString(KeyHome),
		Addr:         v.GetString(KeyAddr),
		Transport:    v.GetString(KeyTransport),
		DBBackend:    v.GetString(KeyDBBackend),
		LogLevel:     v.GetString(KeyLogLevel),
		JoinWindow:   v.GetDuration(KeyJoinWindow),
		RevealWindow: v.GetDuration(KeyRevealWindow),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Home == "" {
		return fmt.Errorf("home is required")
	}
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	switch c.Transport {
	case "socket", "grpc":
	default:
		return fmt.Errorf("unsupported transport %q", c.Transport)
	}
	switch dbm.BackendType(c.DBBackend) {
	case dbm.GoLevelDBBackend, dbm.MemDBBackend:
	default:
		return fmt.Errorf("unsupported db backend %q", c.DBBackend)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return c.Params().Validate()
}

func (c Config) Params() engine.Params {
	return engine.Params{JoinWindow: c.JoinWindow, RevealWindow: c.RevealWindow}
}

func (c Config) Backend() dbm.BackendType {
	return dbm.BackendType(c.DBBackend)
}

// Logger builds the process logger at the configured level.
func (c Config) Logger(w io.Writer) (log.Logger, error) {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	return log.NewLogger(w, log.LevelOption(lvl)), nil
}
