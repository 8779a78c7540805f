package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type Config struct {
	Port        int
	BindAddress string
	DataDir     string
	JWTSecret   string
	DevMode     bool

	// LLM settings
	Model          string
	Temperature    float64
	APIKey         string
	LLMTimeout     time.Duration
	RetrievalLimit int
	StrictTools    bool

	// Retention for chat sessions; zero disables the purge job
	RetentionDays int
}

func Load() *Config {
	cfg := &Config{
		Port:           8080,
		BindAddress:    "127.0.0.1",
		DataDir:        resolveDataDir(),
		JWTSecret:      getEnv("BIZOT_JWT_SECRET", ""),
		DevMode:        getEnv("BIZOT_DEV", "false") == "true",
		Model:          getEnv("BIZOT_MODEL", "gemini-pro"),
		Temperature:    0.3,
		APIKey:         getEnv("GEMINI_API_KEY", ""),
		LLMTimeout:     30 * time.Second,
		RetrievalLimit: 3,
		StrictTools:    getEnv("BIZOT_STRICT_TOOLS", "false") == "true",
		RetentionDays:  0,
	}

	if p := getEnv("BIZOT_PORT", ""); p != "" {
		if port, err := strconv.Atoi(p); err == nil {
			cfg.Port = port
		}
	}
	if b := getEnv("BIZOT_BIND", ""); b != "" {
		cfg.BindAddress = b
	}
	if d := getEnv("BIZOT_DATA_DIR", ""); d != "" {
		cfg.DataDir = d
	}
	if t := getEnv("BIZOT_TEMPERATURE", ""); t != "" {
		if temp, err := strconv.ParseFloat(t, 64); err == nil {
			cfg.Temperature = temp
		}
	}
	if l := getEnv("BIZOT_RETRIEVAL_LIMIT", ""); l != "" {
		if limit, err := strconv.Atoi(l); err == nil && limit > 0 {
			cfg.RetrievalLimit = limit
		}
	}
	if t := getEnv("BIZOT_LLM_TIMEOUT", ""); t != "" {
		if d, err := time.ParseDuration(t); err == nil && d > 0 {
			cfg.LLMTimeout = d
		}
	}
	if r := getEnv("BIZOT_RETENTION_DAYS", ""); r != "" {
		if days, err := strconv.Atoi(r); err == nil && days > 0 {
			cfg.RetentionDays = days
		}
	}

	return cfg
}

func resolveDataDir() string {
	// Resolve data dir relative to the executable, not the CWD
	exe, err := os.Executable()
	if err != nil {
		return "./data"
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "./data"
	}
	return filepath.Join(filepath.Dir(exe), "data")
}

// getEnv treats a set-but-empty variable as unset, matching the != ""
// override checks in Load.
func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
