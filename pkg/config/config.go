// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/bungelogistics/bunge-deploy/pkg/constants"
	"github.com/spf13/viper"
)

// viper keys, also used as flag names
const (
	KeyRPCURL           = "rpc-url"
	KeyChainID          = "chain-id"
	KeyPrivateKey       = "private-key"
	KeyKeystore         = "keystore"
	KeyKeystorePassword = "keystore-password"
	KeyArtifactsDir     = "artifacts-dir"
	KeyContract         = "contract"
	KeyConfirmTimeout   = "confirm-timeout"
	KeyPollInterval     = "poll-interval"
	KeyConfirmations    = "confirmations"
	KeyGasLimit         = "gas-limit"
	KeyGasFeeCap        = "gas-fee-cap"
	KeyGasTipCap        = "gas-tip-cap"
	KeyLogLevel         = "log-level"
	KeyLogFile          = "log-file"
)

// Config is everything a deployment needs. It is built once from flags, env
// and config file and then passed down explicitly.
type Config struct {
	RPCURL  string `mapstructure:"rpc-url"`
	ChainID int64  `mapstructure:"chain-id"`

	PrivateKey       string `mapstructure:"private-key"`
	Keystore         string `mapstructure:"keystore"`
	KeystorePassword string `mapstructure:"keystore-password"`

	ArtifactsDir string `mapstructure:"artifacts-dir"`
	Contract     string `mapstructure:"contract"`

	ConfirmTimeout time.Duration `mapstructure:"confirm-timeout"`
	PollInterval   time.Duration `mapstructure:"poll-interval"`
	Confirmations  uint64        `mapstructure:"confirmations"`

	GasLimit  uint64 `mapstructure:"gas-limit"`
	GasFeeCap string `mapstructure:"gas-fee-cap"`
	GasTipCap string `mapstructure:"gas-tip-cap"`

	LogLevel string `mapstructure:"log-level"`
	LogFile  string `mapstructure:"log-file"`
}

func New() *Config {
	return &Config{
		RPCURL:         constants.DefaultRPCURL,
		ArtifactsDir:   constants.DefaultArtifactsDir,
		Contract:       constants.DefaultContractName,
		ConfirmTimeout: constants.DefaultConfirmTimeout,
		PollInterval:   constants.DefaultPollInterval,
		Confirmations:  constants.DefaultConfirmations,
		LogLevel:       constants.DefaultLogLevel,
	}
}

// SetDefaults registers the defaults of New on v.
func SetDefaults(v *viper.Viper) {
	def := New()
	v.SetDefault(KeyRPCURL, def.RPCURL)
	v.SetDefault(KeyChainID, def.ChainID)
	v.SetDefault(KeyArtifactsDir, def.ArtifactsDir)
	v.SetDefault(KeyContract, def.Contract)
	v.SetDefault(KeyConfirmTimeout, def.ConfirmTimeout)
	v.SetDefault(KeyPollInterval, def.PollInterval)
	v.SetDefault(KeyConfirmations, def.Confirmations)
	v.SetDefault(KeyLogLevel, def.LogLevel)
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := New()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed decoding configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.RPCURL) == "" {
		return constants.ErrNoRPCURL
	}
	if strings.TrimSpace(c.Contract) == "" {
		return constants.ErrNoContractName
	}
	hasKey := c.PrivateKey != ""
	hasKeystore := c.Keystore != ""
	switch {
	case hasKey && hasKeystore:
		return constants.ErrConflictingKeySource
	case !hasKey && !hasKeystore:
		return constants.ErrNoKeySource
	}
	if c.ChainID < 0 {
		return fmt.Errorf("invalid chain id %d", c.ChainID)
	}
	if c.ConfirmTimeout < 0 {
		return fmt.Errorf("invalid confirm timeout %s: must not be negative", c.ConfirmTimeout)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("invalid poll interval %s: must be positive", c.PollInterval)
	}
	if _, err := c.FeeCap(); err != nil {
		return err
	}
	if _, err := c.TipCap(); err != nil {
		return err
	}
	return nil
}

// FeeCap returns the configured EIP-1559 fee cap in wei, or nil to let the
// node suggest one.
func (c *Config) FeeCap() (*big.Int, error) {
	return parseWei(KeyGasFeeCap, c.GasFeeCap)
}

// TipCap returns the configured EIP-1559 tip cap in wei, or nil.
func (c *Config) TipCap() (*big.Int, error) {
	return parseWei(KeyGasTipCap, c.GasTipCap)
}

func (c *Config) ChainIDBig() *big.Int {
	if c.ChainID == 0 {
		return nil
	}
	return big.NewInt(c.ChainID)
}

func parseWei(key, s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, ok := new(big.Int).SetString(s, 0)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid %s %q: expected a non-negative integer amount of wei", key, s)
	}
	return v, nil
}
