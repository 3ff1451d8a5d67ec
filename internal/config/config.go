package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Directory struct {
		BaseURL string `yaml:"base_url"`
		Token   string `yaml:"token"`
	} `yaml:"directory"`
	Workshop struct {
		PointsPerQuestion int    `yaml:"points_per_question"`
		MaxQuestions      int    `yaml:"max_questions"`
		RefreshInterval   string `yaml:"refresh_interval"`
		UsersTable        string `yaml:"users_table"`
		ResponsesTable    string `yaml:"responses_table"`
		QuestionSet       string `yaml:"question_set"`
	} `yaml:"workshop"`
}

// Load reads YAML config from path. A .env file, if present, is loaded first
// so ${VAR}-style secrets can stay out of the YAML.
func Load(path string) (Config, error) {
	_ = godotenv.Load() // best-effort; absence of .env is fine

	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Workshop.PointsPerQuestion == 0 {
		cfg.Workshop.PointsPerQuestion = 10
	}
	if cfg.Workshop.MaxQuestions == 0 {
		cfg.Workshop.MaxQuestions = 10
	}
	if cfg.Workshop.RefreshInterval == "" {
		cfg.Workshop.RefreshInterval = "30s"
	}
	if cfg.Workshop.UsersTable == "" {
		cfg.Workshop.UsersTable = "eligible_users"
	}
	if cfg.Workshop.ResponsesTable == "" {
		cfg.Workshop.ResponsesTable = "user_responses"
	}
	if cfg.Workshop.QuestionSet == "" {
		cfg.Workshop.QuestionSet = "workshop"
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
