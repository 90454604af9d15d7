package config

import (
	"flag"
	"os"

	"gopkg.in/yaml.v3"
)

// Flags holds parsed command-line flag values and which were set.
type Flags struct {
	Config string
	DB     string
	API    string
	Set    map[string]bool
}

// ParseFlags parses command-line flags. Flags win over env and file.
func ParseFlags() Flags {
	cfgPtr := flag.String("config", "./config.yaml", "Path to config file")
	dbPtr := flag.String("db", "./.tripsync", "Local cache DB path")
	apiPtr := flag.String("api", "", "API base URL")
	flag.Parse()
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return Flags{Config: *cfgPtr, DB: *dbPtr, API: *apiPtr, Set: set}
}

// Load reads the YAML config at path. A missing file is not an error;
// defaults plus env overrides still apply.
func Load(path string) (*Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return &cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return &cfg, nil
}

// applyEnv overlays TRIPSYNC_* env vars on top of file values.
func (c *Config) applyEnv() {
	if v := os.Getenv("TRIPSYNC_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("TRIPSYNC_WS_URL"); v != "" {
		c.API.WSURL = v
	}
	if v := os.Getenv("TRIPSYNC_API_TIMEOUT"); v != "" {
		c.API.Timeout = v
	}
	if v := os.Getenv("TRIPSYNC_DB_PATH"); v != "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv("TRIPSYNC_SYNC_INTERVAL"); v != "" {
		c.Sync.Interval = v
	}
	if v := os.Getenv("TRIPSYNC_SYNC_CRON"); v != "" {
		c.Sync.Cron = v
	}
	if v := os.Getenv("TRIPSYNC_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}
