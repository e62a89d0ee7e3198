package vault

import (
	"errors"
	"fmt"
)

const (
	KeyLen            = 32
	SaltLen           = 16
	NonceLen          = 12
	MinPassphraseLen  = 8
	MaxFailedAttempts = 15

	// canary is sealed under the vault key to test candidate passphrases.
	canary  = "vault verification marker"
	kdfInfo = "passvault v1"
)

var (
	ErrWeakPassword    = fmt.Errorf("vault: master password must be at least %d characters", MinPassphraseLen)
	ErrAlreadyExists   = errors.New("vault: already exists")
	ErrNotFound        = errors.New("vault: not found")
	ErrInvalidPassword = errors.New("vault: invalid master password")
	ErrLockedOut       = errors.New("vault: too many failed attempts, vault has been deleted")
	ErrLocked          = errors.New("vault: locked")
	ErrAuthFailed      = errors.New("vault: authentication failed")
	ErrCorrupt         = errors.New("vault: corrupt file")
	ErrIO              = errors.New("vault: i/o failure")
	ErrKeyDerivation   = errors.New("vault: key derivation failed")
)

// InvalidPasswordError is returned by Unlock when the passphrase is wrong
// but the vault still has attempts left.
type InvalidPasswordError struct {
	Remaining uint32
}

func (e *InvalidPasswordError) Error() string {
	return fmt.Sprintf("%s, %d attempts remaining", ErrInvalidPassword, e.Remaining)
}

func (e *InvalidPasswordError) Is(target error) bool { return target == ErrInvalidPassword }

type State int

const (
	StateUninitialized State = iota
	StateLocked
	StateUnlocked
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLocked:
		return "locked"
	case StateUnlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}

type KDFParams struct {
	Time    uint32 `json:"time" yaml:"time"`
	Memory  uint32 `json:"memory_kib" yaml:"memory_kib"`
	Threads uint8  `json:"threads" yaml:"threads"`
}

type Metadata struct {
	Salt              []byte     `json:"salt"`
	VerificationHash  []byte     `json:"verification_hash"`
	VerificationNonce []byte     `json:"verification_nonce"`
	FailedAttempts    uint32     `json:"failed_attempts"`
	KDF               *KDFParams `json:"kdf,omitempty"`
}

// PasswordEntry is the at-rest form of a credential. Byte fields travel
// as base64 in the vault file.
type PasswordEntry struct {
	ID                string `json:"id"`
	URL               string `json:"url"`
	Username          string `json:"username"`
	EncryptedPassword []byte `json:"encrypted_password"`
	Nonce             []byte `json:"nonce"`
	CreatedAt         int64  `json:"createdAt"`
	UpdatedAt         int64  `json:"updatedAt"`
}

// DecryptedPasswordEntry is never persisted.
type DecryptedPasswordEntry struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// EntryUpdate carries a partial update; nil fields are left unchanged.
type EntryUpdate struct {
	URL      *string
	Username *string
	Password *string
}

type Vault struct {
	Metadata Metadata        `json:"metadata"`
	Entries  []PasswordEntry `json:"entries"`
}
