package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/kelseyhightower/envconfig"
)

const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendDaemon = "daemon"
	BackendMemory = "memory"
)

// Grid holds the fixed geometry of the calendar grid and chart.
type Grid struct {
	CellSize           float64  `json:"cell_size"`
	Stride             float64  `json:"stride"`
	Radius             float64  `json:"radius"`
	MinRows            int      `json:"min_rows"`
	MaxRows            int      `json:"max_rows"`
	FooterHeight       float64  `json:"footer_height"`
	TitleBarHeight     float64  `json:"title_bar_height"`
	GraphPaddingTop    float64  `json:"graph_padding_top"`
	GraphPaddingBottom float64  `json:"graph_padding_bottom"`
	MonthNames         []string `json:"month_names"`
}

type StoreConfig struct {
	Backend       string `json:"backend"`
	SQLitePath    string `json:"sqlite_path,omitempty"`
	RedisAddr     string `json:"redis_addr"`
	RedisKey      string `json:"redis_key"`
	RedisPassword string `json:"-"`
	DaemonSocket  string `json:"daemon_socket,omitempty"`
	DaemonURL     string `json:"daemon_url,omitempty"`
}

type ServerConfig struct {
	Addr                string `json:"addr,omitempty"`
	SocketPath          string `json:"socket_path,omitempty"`
	WriteLimitPerMinute int    `json:"write_limit_per_minute"`
}

type Config struct {
	Grid   Grid         `json:"grid"`
	Store  StoreConfig  `json:"store"`
	Server ServerConfig `json:"server"`
	Theme  string       `json:"theme"`
}

// envOverrides are read with envconfig under the CALGRID_ prefix.
type envOverrides struct {
	StoreBackend  string `envconfig:"STORE_BACKEND"`
	SQLitePath    string `envconfig:"SQLITE_PATH"`
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisKey      string `envconfig:"REDIS_KEY"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	DaemonSocket  string `envconfig:"DAEMON_SOCKET"`
	DaemonURL     string `envconfig:"DAEMON_URL"`
	ServerAddr    string `envconfig:"SERVER_ADDR"`
	ServerSocket  string `envconfig:"SERVER_SOCKET"`
	WriteLimit    int    `envconfig:"WRITE_LIMIT"`
	Theme         string `envconfig:"THEME"`
}

func DefaultGrid() Grid {
	return Grid{
		CellSize:           24,
		Stride:             26,
		Radius:             6,
		MinRows:            1,
		MaxRows:            16,
		FooterHeight:       40,
		TitleBarHeight:     50,
		GraphPaddingTop:    15,
		GraphPaddingBottom: 15,
		MonthNames: []string{
			"Jan", "Feb", "Mar", "Apr", "May", "Jun",
			"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
		},
	}
}

func DefaultConfig() Config {
	return Config{
		Grid: DefaultGrid(),
		Store: StoreConfig{
			Backend:   BackendSQLite,
			RedisAddr: "127.0.0.1:6379",
			RedisKey:  "calgrid:values",
		},
		Server: ServerConfig{WriteLimitPerMinute: 120},
		Theme:  "Light",
	}
}

// MonthName returns the short label for a zero-based month index.
func (g Grid) MonthName(monthIndex int) string {
	if monthIndex < 0 || monthIndex >= len(g.MonthNames) {
		return ""
	}
	return g.MonthNames[monthIndex]
}

func ConfigDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), "calgrid")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "calgrid")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

func Load() (Config, error) {
	cfg, err := LoadFrom(ConfigPath())
	if err != nil {
		return cfg, err
	}
	if creds, err := LoadCredentials(); err == nil && cfg.Store.RedisPassword == "" {
		cfg.Store.RedisPassword = creds.Secrets[SecretRedisPassword]
	}
	return cfg, nil
}

// LoadFrom reads the config file at path and applies CALGRID_* environment
// overrides. A missing file is not an error.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return DefaultConfig(), fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	backfill(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process("CALGRID", &env); err != nil {
		return fmt.Errorf("reading CALGRID_ environment: %w", err)
	}

	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&cfg.Store.Backend, env.StoreBackend)
	set(&cfg.Store.SQLitePath, env.SQLitePath)
	set(&cfg.Store.RedisAddr, env.RedisAddr)
	set(&cfg.Store.RedisKey, env.RedisKey)
	set(&cfg.Store.RedisPassword, env.RedisPassword)
	set(&cfg.Store.DaemonSocket, env.DaemonSocket)
	set(&cfg.Store.DaemonURL, env.DaemonURL)
	set(&cfg.Server.Addr, env.ServerAddr)
	set(&cfg.Server.SocketPath, env.ServerSocket)
	set(&cfg.Theme, env.Theme)
	if env.WriteLimit > 0 {
		cfg.Server.WriteLimitPerMinute = env.WriteLimit
	}
	return nil
}

func backfill(cfg *Config) {
	def := DefaultConfig()
	g := &cfg.Grid
	if g.CellSize <= 0 {
		g.CellSize = def.Grid.CellSize
	}
	if g.Stride <= 0 {
		g.Stride = def.Grid.Stride
	}
	if g.Radius < 0 || g.Radius > g.Stride/2 {
		g.Radius = min(def.Grid.Radius, g.Stride/2)
	}
	if g.MinRows <= 0 {
		g.MinRows = def.Grid.MinRows
	}
	if g.MaxRows < g.MinRows {
		g.MaxRows = max(def.Grid.MaxRows, g.MinRows)
	}
	if g.FooterHeight < 0 {
		g.FooterHeight = def.Grid.FooterHeight
	}
	if g.TitleBarHeight < 0 {
		g.TitleBarHeight = def.Grid.TitleBarHeight
	}
	if len(g.MonthNames) != 12 {
		g.MonthNames = def.Grid.MonthNames
	}

	switch cfg.Store.Backend {
	case BackendSQLite, BackendRedis, BackendDaemon, BackendMemory:
	default:
		cfg.Store.Backend = def.Store.Backend
	}
	if cfg.Store.RedisAddr == "" {
		cfg.Store.RedisAddr = def.Store.RedisAddr
	}
	if cfg.Store.RedisKey == "" {
		cfg.Store.RedisKey = def.Store.RedisKey
	}
	if cfg.Server.WriteLimitPerMinute <= 0 {
		cfg.Server.WriteLimitPerMinute = def.Server.WriteLimitPerMinute
	}
	if cfg.Theme == "" {
		cfg.Theme = def.Theme
	}
}

// saveMu guards read-modify-write cycles on the config file.
var saveMu sync.Mutex

func Save(cfg Config) error {
	return SaveTo(ConfigPath(), cfg)
}

func SaveTo(path string, cfg Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// SaveThemeTo persists a theme name into the config file (read-modify-write).
func SaveThemeTo(path string, theme string) error {
	saveMu.Lock()
	defer saveMu.Unlock()

	cfg, err := LoadFrom(path)
	if err != nil {
		cfg = DefaultConfig()
	}
	cfg.Theme = theme
	return SaveTo(path, cfg)
}

// SaveTheme persists theme into the default config file.
func SaveTheme(theme string) error {
	return SaveThemeTo(ConfigPath(), theme)
}
