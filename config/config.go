// Package config loads the vesting table and network settings.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultPath        = "vesting.yaml"
	DefaultJournalPath = "vesting-journal.jsonl"

	EnvRPC        = "VESTING_RPC"
	EnvPrivateKey = "VESTING_PRIVATE_KEY"
)

// Config is the checked-in table plus the network settings. Only the node
// endpoint and the signer key may come from the environment.
type Config struct {
	Rpc                 string        `mapstructure:"rpc"`
	PrivateKey          string        `mapstructure:"privateKey"`
	ChainID             uint64        `mapstructure:"chainId"` // 0 means query the node
	TokenVestingAddress string        `mapstructure:"tokenVestingAddress"`
	TokenAddress        string        `mapstructure:"tokenAddress"`
	GasPriceGwei        float64       `mapstructure:"gasPriceGwei"`
	GasLimit            uint64        `mapstructure:"gasLimit"`
	ConfirmTimeout      time.Duration `mapstructure:"confirmTimeout"`
	SubmitInterval      time.Duration `mapstructure:"submitInterval"`
	JournalPath         string        `mapstructure:"journalPath"`

	InitialReceivers []ReceiverRow    `mapstructure:"initialReceivers"`
	Beneficiaries    []BeneficiaryRow `mapstructure:"beneficiaries"`
}

// ReceiverRow is one row of the initial distribution.
type ReceiverRow struct {
	Receiver string `mapstructure:"receiver"`
	Amount   string `mapstructure:"amount"`
}

// BeneficiaryRow is one row of the vesting table. Cliff, Duration and
// SlicePeriod accept seconds, "<n>mo" (30 day months) or a Go duration.
// Start and Revocable are pointers so that an omitted key is reported
// instead of decoding to zero.
type BeneficiaryRow struct {
	Address     string  `mapstructure:"address"`
	Start       *uint64 `mapstructure:"start"`
	Cliff       string  `mapstructure:"cliff"`
	Duration    string  `mapstructure:"duration"`
	SlicePeriod string  `mapstructure:"slicePeriod"`
	Revocable   *bool   `mapstructure:"revocable"`
	Amount      string  `mapstructure:"amount"`
}

// Load reads the YAML (or JSON/TOML, by extension) table at path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.BindEnv("rpc", EnvRPC); err != nil {
		return nil, err
	}
	if err := v.BindEnv("privateKey", EnvPrivateKey); err != nil {
		return nil, err
	}

	v.SetDefault("rpc", "http://localhost:8545")
	v.SetDefault("confirmTimeout", "3m")
	v.SetDefault("submitInterval", "0s")
	v.SetDefault("journalPath", DefaultJournalPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	return &cfg, nil
}
