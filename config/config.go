package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultAPIURL          = "https://engine.prod.bria-api.com/v1/eraser"
	DefaultBenchmarkFolder = "benchmark_folders"
	DefaultOutputFolder    = "benchmark_res"

	envPrefix = "ERASER"
)

// Config is every recognized option. Keys match the YAML file and, upper-cased
// with the ERASER_ prefix, the environment.
type Config struct {
	APIURL          string        `mapstructure:"api_url"`
	APIToken        string        `mapstructure:"api_token"`
	APITimeout      time.Duration `mapstructure:"api_timeout"`
	BenchmarkFolder string        `mapstructure:"benchmark_folder"`
	OutputFolder    string        `mapstructure:"output_folder"`
	Workers         int           `mapstructure:"workers"`
	Strict          bool          `mapstructure:"strict"`
	LogMode         string        `mapstructure:"log_mode"`
	DB              string        `mapstructure:"db"`
	Schedule        string        `mapstructure:"schedule"`
	MockAddr        string        `mapstructure:"mock_addr"`
}

// NewViper 返回已设置默认值并绑定环境变量的 viper 实例
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configPath (when not empty) into v and unmarshals the result.
func Load(v *viper.Viper, configPath string) (*Config, error) {
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_url", DefaultAPIURL)
	v.SetDefault("api_token", "")
	v.SetDefault("api_timeout", 30*time.Second)
	v.SetDefault("benchmark_folder", DefaultBenchmarkFolder)
	v.SetDefault("output_folder", DefaultOutputFolder)
	v.SetDefault("workers", 1)
	v.SetDefault("strict", false)
	v.SetDefault("log_mode", "debug")
	v.SetDefault("db", "")
	v.SetDefault("schedule", "")
	v.SetDefault("mock_addr", ":8089")
}

// Default 返回不读取文件和环境变量时的配置
func Default() *Config {
	return &Config{
		APIURL:          DefaultAPIURL,
		APITimeout:      30 * time.Second,
		BenchmarkFolder: DefaultBenchmarkFolder,
		OutputFolder:    DefaultOutputFolder,
		Workers:         1,
		LogMode:         "debug",
		MockAddr:        ":8089",
	}
}

// ValidateAPI checks the options needed to talk to the eraser endpoint.
func (c *Config) ValidateAPI() error {
	if c.APIURL == "" {
		return errors.New("api_url is required")
	}
	if c.APIToken == "" {
		return errors.New("api_token is required (flag --api-token or ERASER_API_TOKEN)")
	}
	if c.APITimeout < 0 {
		return fmt.Errorf("api_timeout must not be negative, got %s", c.APITimeout)
	}
	return nil
}

// ValidateBenchmark checks the options of a benchmark run.
func (c *Config) ValidateBenchmark() error {
	if err := c.ValidateAPI(); err != nil {
		return err
	}
	if c.BenchmarkFolder == "" {
		return errors.New("benchmark_folder is required")
	}
	if c.OutputFolder == "" {
		return errors.New("output_folder is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	return nil
}
