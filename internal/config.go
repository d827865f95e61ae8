package internal

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Host     string `env:"HOST,default=0.0.0.0"`
	HTTPPort int    `env:"HTTP_PORT,default=8080"`
	GRPCPort int    `env:"GRPC_PORT,default=9090"`
	LogLevel string `env:"LOG_LEVEL,default=INFO"`

	MailboxSize          int           `env:"MAILBOX_SIZE,default=64"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=128"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=2s"`
	IdleTimeout          time.Duration `env:"IDLE_TIMEOUT,default=10m"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=1s"`
	DefaultLanguage      string        `env:"DEFAULT_LANGUAGE,default=python"`
	DefaultVisibility    string        `env:"DEFAULT_VISIBILITY,default=public"`
	SeedDefaultCode      bool          `env:"SEED_DEFAULT_CODE,default=true"`
	MaxContentLength     int           `env:"MAX_CONTENT_LENGTH,default=1048576"`

	CensoredWords   string `env:"CENSORED_WORDS"`
	CharReplacement string `env:"CHARACTER_REPLACEMENT,default=*"`

	AuthSecret        string        `env:"AUTH_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	LedgerSealKeyID   string        `env:"LEDGER_SEAL_KEY_ID,default=k1"`
	LedgerSealKey     string        `env:"LEDGER_SEAL_KEY"`

	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	ArchiveBufferSize    int           `env:"ARCHIVE_BUFFER_SIZE,default=64"`
	RedisAddr            string        `env:"REDIS_ADDR"`
	MirrorBufferSize     int           `env:"MIRROR_BUFFER_SIZE,default=1024"`
	ExecutionEnabled     bool          `env:"EXECUTION_ENABLED,default=false"`
	ExecutionTimeout     time.Duration `env:"EXECUTION_TIMEOUT,default=10s"`
	TelemetryInterval    time.Duration `env:"TELEMETRY_INTERVAL,default=30s"`
	LowCapacityThreshold int           `env:"LOW_CAPACITY_THRESHOLD,default=80"`
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}

// WordList splits a comma separated list, dropping blanks.
func WordList(str string) []string {
	var words []string
	for _, word := range strings.Split(str, ",") {
		if word = strings.TrimSpace(word); word != "" {
			words = append(words, word)
		}
	}
	return words
}

// SealKeys returns the keyring material, or nil when sealing is disabled.
func (c Config) SealKeys() map[string][]byte {
	if c.LedgerSealKey == "" {
		return nil
	}
	return map[string][]byte{c.LedgerSealKeyID: []byte(c.LedgerSealKey)}
}
