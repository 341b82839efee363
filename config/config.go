package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/viper"
)

const (
	DefaultPath = "config/config.json"
	envPrefix   = "MECO"
)

// Config holds all configurable parameters for the application
type Config struct {
	Token       TokenConfig   `mapstructure:"token"`
	StorageDir  string        `mapstructure:"storage_dir"`
	Persistent  bool          `mapstructure:"persistent"`
	Port        int           `mapstructure:"port"`
	BlockTimeMs int           `mapstructure:"block_time_ms"`
	LogLevel    string        `mapstructure:"log_level"`
	Reclaim     ReclaimConfig `mapstructure:"reclaim"`
	Network     NetworkConfig `mapstructure:"network"`
}

type TokenConfig struct {
	Name     string `mapstructure:"name"`
	Symbol   string `mapstructure:"symbol"`
	Decimals uint8  `mapstructure:"decimals"`
	// InitialSupply is in whole tokens; Supply scales it by Decimals.
	InitialSupply string `mapstructure:"initial_supply"`
	Owner         string `mapstructure:"owner"`
}

type ReclaimConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Interval   time.Duration `mapstructure:"interval"`
	MaxHolders int           `mapstructure:"max_holders"`
}

// NetworkConfig holds network-level configuration for HTTP clients
type NetworkConfig struct {
	ServerURL string        `mapstructure:"server_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

var defaults = map[string]any{
	"token.name":           "META CONCERT",
	"token.symbol":         "MECO",
	"token.decimals":       18,
	"token.initial_supply": "5000000000",
	"token.owner":          "",
	"storage_dir":          "./storage",
	"persistent":           false,
	"port":                 8545,
	"block_time_ms":        3000,
	"log_level":            "info",
	"reclaim.enabled":      true,
	"reclaim.interval":     "30s",
	"reclaim.max_holders":  100,
	"network.server_url":   "http://localhost:8545",
	"network.timeout":      "10s",
}

func newViper() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in configuration with MECO_ environment
// overrides applied.
func Default() *Config {
	cfg, err := decode(newViper())
	if err != nil {
		panic(err) // defaults are static
	}
	return cfg
}

// Load reads configPath, fills missing keys with defaults and applies MECO_
// environment overrides (MECO_TOKEN_OWNER, MECO_RECLAIM_INTERVAL, ...).
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	return cfg, nil
}

// LoadDefault loads the default config from config.json in the current directory
func LoadDefault() (*Config, error) {
	return Load(DefaultPath)
}

func (c *Config) Validate() error {
	if err := c.Token.Validate(); err != nil {
		return err
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.BlockTimeMs <= 0 {
		return errors.New("block_time_ms must be positive")
	}
	if c.Persistent && c.StorageDir == "" {
		return errors.New("storage_dir is required when persistent is set")
	}
	if err := c.Reclaim.Validate(); err != nil {
		return err
	}
	return c.Network.Validate()
}

func (c *Config) BlockTime() time.Duration {
	return time.Duration(c.BlockTimeMs) * time.Millisecond
}

func (c *TokenConfig) Validate() error {
	if c.Name == "" || c.Symbol == "" {
		return errors.New("token name and symbol are required")
	}
	if c.Decimals > 77 {
		return fmt.Errorf("token decimals %d exceed 77", c.Decimals)
	}
	if c.Owner != "" && !common.IsHexAddress(c.Owner) {
		return fmt.Errorf("token owner %q is not an address", c.Owner)
	}
	supply, err := c.Supply()
	if err != nil {
		return err
	}
	if supply.IsZero() {
		return errors.New("token initial_supply must be positive")
	}
	return nil
}

// Supply returns InitialSupply * 10^Decimals in base units.
func (c *TokenConfig) Supply() (*uint256.Int, error) {
	whole, err := uint256.FromDecimal(c.InitialSupply)
	if err != nil {
		return nil, fmt.Errorf("token initial_supply %q: %w", c.InitialSupply, err)
	}
	scale := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(c.Decimals)))
	supply, overflow := new(uint256.Int).MulOverflow(whole, scale)
	if overflow {
		return nil, fmt.Errorf("token initial_supply %q overflows 256 bits", c.InitialSupply)
	}
	return supply, nil
}

// OwnerAddress returns the configured genesis owner, or the zero address.
func (c *TokenConfig) OwnerAddress() common.Address {
	return common.HexToAddress(c.Owner)
}

func (c *ReclaimConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Interval <= 0 {
		return errors.New("reclaim.interval must be positive")
	}
	if c.MaxHolders < 0 {
		return errors.New("reclaim.max_holders must not be negative")
	}
	return nil
}

func (c *NetworkConfig) Validate() error {
	if c.Timeout <= 0 {
		return errors.New("network.timeout must be positive")
	}
	return nil
}
