package main

import (
	"bytes"
	"codeshare/auth"
	"codeshare/domain"
	"codeshare/errors"
	"codeshare/ledger"
	"codeshare/repositories"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

const testSealKey = "0123456789abcdef0123456789abcdef"

func archiveFixture(t *testing.T, tamper func(*domain.Archive)) (repositories.ArchiveRepository, *ledger.Keyring) {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	repository := repositories.NewArchiveRepository(db, slog.Default())

	keyring, err := ledger.NewKeyring(map[string][]byte{"k1": []byte(testSealKey)}, "k1")
	require.NoError(t, err)

	chains := ledger.New()
	chains.Append("S1", "alice", "edit", `{"content":"a"}`)
	chains.Append("S1", "alice", "lock_toggle", `{"locked":true}`)
	chain := chains.Chain("S1")
	seal, err := keyring.Seal("S1", chain)
	require.NoError(t, err)

	archive := domain.Archive{
		SessionID: "S1",
		Content:   "a",
		Language:  "python",
		Revision:  1,
		OwnerID:   "alice",
		CreatedAt: time.Now().Add(-time.Hour),
		EvictedAt: time.Now(),
		Chain:     chain,
		Seal:      seal,
	}
	if tamper != nil {
		tamper(&archive)
	}
	require.NoError(t, repository.Store(context.Background(), archive))
	return repository, keyring
}

func plainOptions() *RootOptions {
	return &RootOptions{Config: Config{Colours: false}}
}

func TestList(t *testing.T) {
	req := require.New(t)
	repository, _ := archiveFixture(t, nil)
	var out bytes.Buffer

	req.NoError(runList(&out, repository))

	req.Contains(out.String(), "S1")
	req.Contains(out.String(), "alice")
}

func TestChain(t *testing.T) {
	req := require.New(t)
	repository, _ := archiveFixture(t, nil)
	var out bytes.Buffer

	req.NoError(runChain(&out, repository, "S1"))

	req.Contains(out.String(), "lock_toggle")
	req.ErrorIs(runChain(&out, repository, "S2"), errors.ErrArchiveNotFound)
}

func TestVerify(t *testing.T) {
	t.Run("should accept an intact sealed archive", func(t *testing.T) {
		req := require.New(t)
		repository, keyring := archiveFixture(t, nil)
		var out bytes.Buffer

		req.NoError(runVerify(&out, plainOptions(), repository, keyring, "S1"))

		req.Contains(out.String(), "VALID chain of S1, 2 blocks")
		req.Contains(out.String(), "VALID seal, key k1")
	})

	t.Run("should skip the seal without a keyring", func(t *testing.T) {
		req := require.New(t)
		repository, _ := archiveFixture(t, nil)
		var out bytes.Buffer

		req.NoError(runVerify(&out, plainOptions(), repository, nil, "S1"))

		req.Contains(out.String(), "SKIPPED seal")
	})

	t.Run("should detect an edited block", func(t *testing.T) {
		req := require.New(t)
		repository, keyring := archiveFixture(t, func(a *domain.Archive) {
			a.Chain[1].Payload = `{"locked":false}`
		})
		var out bytes.Buffer

		err := runVerify(&out, plainOptions(), repository, keyring, "S1")

		req.ErrorIs(err, errors.ErrTamperDetected)
		req.Contains(out.String(), "breaks at block 1")
	})

	t.Run("should detect a rewritten and rehashed chain", func(t *testing.T) {
		req := require.New(t)
		repository, keyring := archiveFixture(t, func(a *domain.Archive) {
			a.Chain = a.Chain[:1]
		})
		var out bytes.Buffer

		err := runVerify(&out, plainOptions(), repository, keyring, "S1")

		req.ErrorIs(err, errors.ErrInvalidSeal)
	})
}

func TestTokenCommand(t *testing.T) {
	req := require.New(t)
	secret := "an-inspect-test-secret-long-enough-2026"
	t.Setenv("AUTH_SECRET", secret)
	t.Setenv("BADGER_FILEPATH", t.TempDir())

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"token", "alice", "--name", "Alice", "--ttl", "1h"})

	req.NoError(cmd.Execute())

	validator, err := auth.NewTokenValidator(secret)
	req.NoError(err)
	identity, err := validator.Authenticate(strings.TrimSpace(out.String()))
	req.NoError(err)
	req.Equal(domain.Identity{UserID: "alice", DisplayName: "Alice"}, identity)
}
