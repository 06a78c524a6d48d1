// Package config loads config.yaml with environment overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const envPrefix = "MEDCOST_"

type Config struct {
	Http struct {
		Port           int           `yaml:"port"`
		Timeout        time.Duration `yaml:"timeout"`
		MaxBodyBytes   int64         `yaml:"max_body_bytes"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
	} `yaml:"http"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`
	ML struct {
		ModelPath   string   `yaml:"model_path"`
		DatasetPath string   `yaml:"dataset_path"`
		Encodings   []string `yaml:"encodings"`
		CacheSize   int      `yaml:"cache_size"`
		WatchModel  bool     `yaml:"watch_model"`
		Training    struct {
			NumTrees       int     `yaml:"n_estimators"`
			Seed           int64   `yaml:"random_state"`
			MaxDepth       int     `yaml:"max_depth"`
			MinSamplesLeaf int     `yaml:"min_samples_leaf"`
			TestRatio      float64 `yaml:"test_ratio"`
			Workers        int     `yaml:"workers"`
		} `yaml:"training"`
	} `yaml:"ml"`
}

func Default() *Config {
	var c Config
	c.Http.Port = 8501
	c.Http.Timeout = 30 * time.Second
	c.Http.MaxBodyBytes = 1 << 20
	c.Http.AllowedOrigins = []string{"*"}
	c.Database.Path = "medcost.db"
	c.Log.Level = "info"
	c.Log.MaxSizeMB = 100
	c.Log.MaxBackups = 3
	c.Log.MaxAgeDays = 28
	c.ML.ModelPath = "rfr_model.json"
	c.ML.DatasetPath = "insurance-chinese.csv"
	c.ML.Encodings = []string{"gbk", "gb2312", "utf-8"}
	c.ML.CacheSize = 4
	c.ML.WatchModel = true
	c.ML.Training.NumTrees = 100
	c.ML.Training.Seed = 42
	c.ML.Training.MinSamplesLeaf = 1
	c.ML.Training.TestRatio = 0.2
	return &c
}

// Load reads path over the defaults. A missing file is not an error. A .env file next to
// the config is loaded into the environment, then MEDCOST_* variables override the file.
func Load(path string) (*Config, error) {
	config := Default()

	file, err := os.Open(path)
	switch {
	case err == nil:
		defer file.Close()
		if err := yaml.NewDecoder(file).Decode(config); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}

	envFile := filepath.Join(filepath.Dir(path), ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}
	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	return config, config.Validate()
}

func (c *Config) applyEnv() error {
	if v, ok := lookup("HTTP_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sHTTP_PORT: %w", envPrefix, err)
		}
		c.Http.Port = port
	}
	if v, ok := lookup("DB_PATH"); ok {
		c.Database.Path = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := lookup("LOG_FILE"); ok {
		c.Log.File = v
	}
	if v, ok := lookup("MODEL_PATH"); ok {
		c.ML.ModelPath = v
	}
	if v, ok := lookup("DATASET_PATH"); ok {
		c.ML.DatasetPath = v
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.Http.Port)
	}
	if c.ML.ModelPath == "" {
		return errors.New("ml.model_path is required")
	}
	if r := c.ML.Training.TestRatio; r <= 0 || r >= 1 {
		return fmt.Errorf("ml.training.test_ratio %v must be between 0 and 1", r)
	}
	if c.ML.Training.NumTrees <= 0 {
		return fmt.Errorf("ml.training.n_estimators %d must be positive", c.ML.Training.NumTrees)
	}
	return nil
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}
