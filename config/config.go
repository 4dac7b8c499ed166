package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/holiman/uint256"

	"salechain/crypto"
)

// SaleConfig carries the sale parameters fixed at daemon start.
type SaleConfig struct {
	OpeningTime     int64  `toml:"OpeningTime"`
	ClosingTime     int64  `toml:"ClosingTime"`
	RateWei         string `toml:"RateWei"`
	BonusMultiplier string `toml:"BonusMultiplier"`
	GoalWei         string `toml:"GoalWei"`
	Owner           string `toml:"Owner"`
	Wallet          string `toml:"Wallet"`
	TokenVault      string `toml:"TokenVault"`
}

// Config is the daemon configuration, loaded from TOML.
type Config struct {
	ListenAddress string     `toml:"ListenAddress"`
	DataDir       string     `toml:"DataDir"`
	GenesisFile   string     `toml:"GenesisFile"`
	RPCAuthToken  string     `toml:"RPCAuthToken"`
	LogEnv        string     `toml:"LogEnv"`
	LogFile       string     `toml:"LogFile"`
	Sale          SaleConfig `toml:"Sale"`
}

// Load reads the configuration at path, creating a default file when none
// exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":8645"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./saled-data"
	}
	if strings.TrimSpace(cfg.LogEnv) == "" {
		cfg.LogEnv = "dev"
	}
}

func createDefault(path string) (*Config, error) {
	now := time.Now().Unix()
	cfg := &Config{
		ListenAddress: ":8645",
		DataDir:       "./saled-data",
		GenesisFile:   "./genesis.json",
		LogEnv:        "dev",
		Sale: SaleConfig{
			OpeningTime:     now + 3600,
			ClosingTime:     now + 7*24*3600,
			RateWei:         "100",
			BonusMultiplier: "1000",
			GoalWei:         "1000000000000000000",
		},
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaleParams is the validated, decoded form of SaleConfig.
type SaleParams struct {
	OpeningTime     int64
	ClosingTime     int64
	Rate            *uint256.Int
	BonusMultiplier *uint256.Int
	Goal            *uint256.Int
	Owner           [20]byte
	Wallet          [20]byte
	TokenVault      [20]byte
}

// Validate decodes and checks the sale section.
func (c *Config) Validate() (*SaleParams, error) {
	s := c.Sale
	if s.ClosingTime < s.OpeningTime {
		return nil, fmt.Errorf("config: ClosingTime precedes OpeningTime")
	}
	rate, err := parseAmount("RateWei", s.RateWei)
	if err != nil {
		return nil, err
	}
	bonus, err := parseAmount("BonusMultiplier", s.BonusMultiplier)
	if err != nil {
		return nil, err
	}
	goal, err := parseAmount("GoalWei", s.GoalWei)
	if err != nil {
		return nil, err
	}
	if rate.IsZero() || bonus.IsZero() {
		return nil, fmt.Errorf("config: RateWei and BonusMultiplier must be non-zero")
	}
	if goal.IsZero() {
		return nil, fmt.Errorf("config: GoalWei must be non-zero")
	}
	owner, err := parseAddress("Owner", s.Owner)
	if err != nil {
		return nil, err
	}
	wallet, err := parseAddress("Wallet", s.Wallet)
	if err != nil {
		return nil, err
	}
	vault, err := parseAddress("TokenVault", s.TokenVault)
	if err != nil {
		return nil, err
	}
	return &SaleParams{
		OpeningTime:     s.OpeningTime,
		ClosingTime:     s.ClosingTime,
		Rate:            rate,
		BonusMultiplier: bonus,
		Goal:            goal,
		Owner:           owner,
		Wallet:          wallet,
		TokenVault:      vault,
	}, nil
}

func parseAmount(field, value string) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("config: %s is required", field)
	}
	amount := new(uint256.Int)
	if err := amount.SetFromDecimal(trimmed); err != nil {
		return nil, fmt.Errorf("config: invalid %s %q: %w", field, value, err)
	}
	return amount, nil
}

func parseAddress(field, value string) ([20]byte, error) {
	addr, err := crypto.ParseAddress(value)
	if err != nil {
		return [20]byte{}, fmt.Errorf("config: invalid %s: %w", field, err)
	}
	if addr.IsZero() {
		return [20]byte{}, fmt.Errorf("config: %s must not be the zero address", field)
	}
	return addr.Bytes(), nil
}
