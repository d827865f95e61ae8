package ledger

import (
	"codeshare/errors"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const sealInfoPrefix = "codeshare/ledger/seal/v1:"

// Seal authenticates the head of an exported chain, so an archived chain
// cannot be rewritten wholesale and re-hashed without the key.
type Seal struct {
	Length    int    `json:"length"`
	HeadHash  string `json:"head_hash"`
	KeyID     string `json:"key_id"`
	Signature string `json:"signature"`
}

// Keyring stores root HMAC keys and the active key id. Each session signs with
// its own key derived from the root.
type Keyring struct {
	keys        map[string][]byte
	activeKeyID string
}

func NewKeyring(keys map[string][]byte, activeKeyID string) (*Keyring, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: no keys", errors.ErrSealKeyMissing)
	}
	activeKeyID = strings.TrimSpace(activeKeyID)
	if activeKeyID == "" {
		return nil, fmt.Errorf("%w: active key id is required", errors.ErrSealKeyMissing)
	}
	if len(keys[activeKeyID]) == 0 {
		return nil, fmt.Errorf("%w: active key id %q is not configured", errors.ErrSealKeyMissing, activeKeyID)
	}
	return &Keyring{keys: keys, activeKeyID: activeKeyID}, nil
}

func (k *Keyring) ActiveKeyID() string {
	if k == nil {
		return ""
	}
	return k.activeKeyID
}

// Seal signs the length and head hash of blocks with the active key.
func (k *Keyring) Seal(sessionID string, blocks []Block) (Seal, error) {
	if k == nil {
		return Seal{}, errors.ErrSealKeyMissing
	}
	length, head := headOf(blocks)
	signature, err := k.sign(k.activeKeyID, sessionID, length, head)
	if err != nil {
		return Seal{}, err
	}
	return Seal{Length: length, HeadHash: head, KeyID: k.activeKeyID, Signature: signature}, nil
}

// VerifySeal checks that seal was issued for exactly these blocks.
// It does not re-verify the chain itself, see VerifyChain.
func (k *Keyring) VerifySeal(sessionID string, blocks []Block, seal Seal) error {
	if k == nil {
		return errors.ErrSealKeyMissing
	}
	length, head := headOf(blocks)
	if seal.Length != length || seal.HeadHash != head {
		return fmt.Errorf("%w: sealed %d blocks ending %s, found %d ending %s",
			errors.ErrInvalidSeal, seal.Length, seal.HeadHash, length, head)
	}
	expected, err := k.sign(seal.KeyID, sessionID, length, head)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(expected), []byte(seal.Signature)) {
		return fmt.Errorf("%w: signature", errors.ErrInvalidSeal)
	}
	return nil
}

func (k *Keyring) sign(keyID, sessionID string, length int, head string) (string, error) {
	root, ok := k.keys[strings.TrimSpace(keyID)]
	if !ok {
		return "", fmt.Errorf("%w: unknown key id %q", errors.ErrSealKeyMissing, keyID)
	}
	key, err := deriveSessionKey(root, sessionID)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(strconv.Itoa(length)))
	mac.Write([]byte{0x00})
	mac.Write([]byte(head))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

func deriveSessionKey(root []byte, sessionID string) ([]byte, error) {
	reader := hkdf.New(sha256.New, root, nil, []byte(sealInfoPrefix+sessionID))
	key := make([]byte, sha256.Size)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("derive seal key: %w", err)
	}
	return key, nil
}

func headOf(blocks []Block) (int, string) {
	if len(blocks) == 0 {
		return 0, Genesis
	}
	return len(blocks), blocks[len(blocks)-1].Hash
}
