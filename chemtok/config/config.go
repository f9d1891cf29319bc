package config

import (
	"fmt"
	"path/filepath"
	"strings"

	internal "github.com/ZanzyTHEbar/chemtok/chemtok"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Tokenizer  TokenizerConfig  `mapstructure:"tokenizer"`
	Call       CallConfig       `mapstructure:"call"`
	Featurizer FeaturizerConfig `mapstructure:"featurizer"`
}

// TokenizerConfig stores where the pretrained tokenizer comes from.
type TokenizerConfig struct {
	Model            string `mapstructure:"model"`
	CacheDir         string `mapstructure:"cacheDir"`
	HubURL           string `mapstructure:"hubURL"`
	Revision         string `mapstructure:"revision"`
	VariantCacheSize int    `mapstructure:"variantCacheSize"`
}

// CallConfig stores the default per-call tokenizer options.
type CallConfig struct {
	AddSpecialTokens bool   `mapstructure:"addSpecialTokens"`
	Truncation       bool   `mapstructure:"truncation"`
	MaxLength        int    `mapstructure:"maxLength"`
	Padding          string `mapstructure:"padding"`
}

// FeaturizerConfig stores batch featurization settings.
type FeaturizerConfig struct {
	Workers  int    `mapstructure:"workers"`
	LogEvery int    `mapstructure:"logEvery"`
	Renderer string `mapstructure:"renderer"`
}

var AppConfig Config

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("..")
		v.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		v.AddConfigPath(internal.DefaultConfigPath)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetDefault("tokenizer.model", internal.DefaultModel)
	v.SetDefault("tokenizer.cacheDir", internal.DefaultTokenizerDir)
	v.SetDefault("tokenizer.hubURL", internal.DefaultHubURL)
	v.SetDefault("tokenizer.revision", internal.DefaultRevision)
	v.SetDefault("tokenizer.variantCacheSize", 8)

	v.SetDefault("call.addSpecialTokens", true)
	v.SetDefault("call.truncation", false)
	v.SetDefault("call.maxLength", 0)
	v.SetDefault("call.padding", "")

	v.SetDefault("featurizer.workers", 0) // 0 selects a CPU-based default
	v.SetDefault("featurizer.logEvery", 1000)
	v.SetDefault("featurizer.renderer", "identity")

	v.AutomaticEnv()                                   // Read in environment variables that match
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // e.g. tokenizer.model becomes TOKENIZER_MODEL

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; defaults will be used.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	AppConfig = cfg

	return &cfg, nil
}
