package main

import (
	"codeshare/ledger"

	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/database"
)

type Config struct {
	BadgerFilepath  string `envconfig:"BADGER_FILEPATH"`
	AuthSecret      string `envconfig:"AUTH_SECRET"`
	LedgerSealKeyID string `envconfig:"LEDGER_SEAL_KEY_ID" default:"k1"`
	LedgerSealKey   string `envconfig:"LEDGER_SEAL_KEY"`
	// INSPECT_COLOURS enables colorized output
	Colours bool `envconfig:"INSPECT_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	if cfg.BadgerFilepath == "" {
		cfg.BadgerFilepath = database.DefaultPath
	}
	return cfg, nil
}

// Keyring is nil when no seal key is configured.
func (c Config) Keyring() (*ledger.Keyring, error) {
	if c.LedgerSealKey == "" {
		return nil, nil
	}
	return ledger.NewKeyring(map[string][]byte{c.LedgerSealKeyID: []byte(c.LedgerSealKey)}, c.LedgerSealKeyID)
}
