package vault

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/awnumar/memguard"
	"github.com/sirupsen/logrus"

	"github.com/fahmaliyi/passvault/logging"
)

// Session owns the unlocked/locked state of one vault file. The derived key
// lives in a memguard buffer between Unlock and Lock; every operation holds
// the session mutex for its whole load-modify-save cycle.
type Session struct {
	mu    sync.Mutex
	store Store
	kdf   KDFParams
	key   *memguard.LockedBuffer
	now   func() time.Time
	log   logrus.FieldLogger
}

type Option func(*Session)

// WithKDFParams sets the Argon2id cost used when creating a vault or
// changing its master password.
func WithKDFParams(p KDFParams) Option {
	return func(s *Session) { s.kdf = p }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Session) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

func NewSession(store Store, opts ...Option) *Session {
	s := &Session{
		store: store,
		kdf:   DefaultKDFParams(),
		now:   time.Now,
		log:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Exists() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Exists()
}

func (s *Session) IsUnlocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasKey()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case !s.store.Exists():
		return StateUninitialized
	case s.hasKey():
		return StateUnlocked
	default:
		return StateLocked
	}
}

// Create initializes a new vault and leaves the session unlocked.
func (s *Session) Create(passphrase string) error {
	if utf8.RuneCountInString(passphrase) < MinPassphraseLen {
		return ErrWeakPassword
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store.Exists() {
		return ErrAlreadyExists
	}

	salt, err := randBytes(SaltLen)
	if err != nil {
		return fmt.Errorf("vault: generate salt: %w", err)
	}
	key, err := DeriveKey(passphrase, salt, s.kdf)
	if err != nil {
		return err
	}
	meta, err := newMetadata(key, salt, s.kdf)
	if err != nil {
		zero(key)
		return err
	}
	if err := s.store.Save(&Vault{Metadata: meta, Entries: []PasswordEntry{}}); err != nil {
		zero(key)
		return err
	}

	s.setKey(key)
	s.log.WithField("event", "vault.created").Info("vault created")
	return nil
}

// Unlock verifies passphrase against the stored canary. Each failure is
// persisted; reaching MaxFailedAttempts deletes the vault and returns
// ErrLockedOut.
func (s *Session) Unlock(passphrase string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.load()
	if err != nil {
		return err
	}
	if v.Metadata.FailedAttempts >= MaxFailedAttempts {
		return s.destroy()
	}

	key, err := s.verify(v, passphrase)
	if err != nil {
		return err
	}
	if v.Metadata.FailedAttempts > 0 {
		v.Metadata.FailedAttempts = 0
		if err := s.store.Save(v); err != nil {
			zero(key)
			return err
		}
	}

	s.setKey(key)
	s.log.WithField("event", "vault.unlocked").Info("vault unlocked")
	return nil
}

func (s *Session) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wipeKey()
	s.log.WithField("event", "vault.locked").Info("vault locked")
}

// Delete wipes the key and removes the vault file.
func (s *Session) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wipeKey()
	if err := s.store.Delete(); err != nil {
		return err
	}
	s.log.WithField("event", "vault.deleted").Warn("vault deleted")
	return nil
}

func (s *Session) RemainingAttempts() (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.store.Load()
	if err != nil {
		return 0, err
	}
	switch {
	case v == nil:
		return MaxFailedAttempts, nil
	case v.Metadata.FailedAttempts >= MaxFailedAttempts:
		return 0, nil
	default:
		return MaxFailedAttempts - v.Metadata.FailedAttempts, nil
	}
}

// ChangeMasterPassword re-encrypts every entry under a key derived from
// newPass with a fresh salt. Nothing is written unless every entry opened
// under the old key.
func (s *Session) ChangeMasterPassword(oldPass, newPass string) error {
	if utf8.RuneCountInString(newPass) < MinPassphraseLen {
		return ErrWeakPassword
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.load()
	if err != nil {
		return err
	}
	if v.Metadata.FailedAttempts >= MaxFailedAttempts {
		return s.destroy()
	}

	oldKey, err := s.verify(v, oldPass)
	if err != nil {
		return err
	}
	defer zero(oldKey)

	plain := make([]string, len(v.Entries))
	for i, e := range v.Entries {
		pt, err := Decrypt(e.EncryptedPassword, e.Nonce, oldKey)
		if err != nil {
			return fmt.Errorf("entry %s: %w", e.ID, err)
		}
		plain[i] = pt
	}

	salt, err := randBytes(SaltLen)
	if err != nil {
		return fmt.Errorf("vault: generate salt: %w", err)
	}
	newKey, err := DeriveKey(newPass, salt, s.kdf)
	if err != nil {
		return err
	}

	entries := make([]PasswordEntry, len(v.Entries))
	for i, e := range v.Entries {
		ct, nonce, err := Encrypt(plain[i], newKey)
		if err != nil {
			zero(newKey)
			return err
		}
		e.EncryptedPassword, e.Nonce = ct, nonce
		entries[i] = e
	}
	meta, err := newMetadata(newKey, salt, s.kdf)
	if err != nil {
		zero(newKey)
		return err
	}
	if err := s.store.Save(&Vault{Metadata: meta, Entries: entries}); err != nil {
		zero(newKey)
		return err
	}

	s.setKey(newKey)
	s.log.WithFields(logrus.Fields{
		"event":   "vault.master_changed",
		"entries": len(entries),
	}).Info("master password changed")
	return nil
}

func newMetadata(key, salt []byte, kdf KDFParams) (Metadata, error) {
	ct, nonce, err := Encrypt(canary, key)
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{
		Salt:              salt,
		VerificationHash:  ct,
		VerificationNonce: nonce,
		KDF:               &kdf,
	}, nil
}

func checkMetadata(m *Metadata) error {
	if len(m.VerificationNonce) == 0 {
		return fmt.Errorf("%w: missing verification nonce, recreate the vault", ErrCorrupt)
	}
	if len(m.VerificationNonce) != NonceLen || len(m.Salt) != SaltLen || len(m.VerificationHash) == 0 {
		return fmt.Errorf("%w: malformed metadata", ErrCorrupt)
	}
	if m.KDF != nil {
		if err := checkKDFParams(*m.KDF); err != nil {
			return fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	}
	return nil
}

// verify derives the key for passphrase and tests it against the canary.
// On mismatch the failure is recorded. Caller holds s.mu.
func (s *Session) verify(v *Vault, passphrase string) ([]byte, error) {
	if err := checkMetadata(&v.Metadata); err != nil {
		return nil, err
	}
	params := DefaultKDFParams()
	if v.Metadata.KDF != nil {
		params = *v.Metadata.KDF
	}

	key, err := DeriveKey(passphrase, v.Metadata.Salt, params)
	if err != nil {
		return nil, err
	}
	pt, err := Decrypt(v.Metadata.VerificationHash, v.Metadata.VerificationNonce, key)
	if err == nil && subtle.ConstantTimeCompare([]byte(pt), []byte(canary)) == 1 {
		return key, nil
	}
	zero(key)
	return nil, s.recordFailure(v)
}

func (s *Session) recordFailure(v *Vault) error {
	v.Metadata.FailedAttempts++
	if v.Metadata.FailedAttempts >= MaxFailedAttempts {
		return s.destroy()
	}
	if err := s.store.Save(v); err != nil {
		return err
	}

	remaining := MaxFailedAttempts - v.Metadata.FailedAttempts
	s.log.WithFields(logrus.Fields{
		"event":     "vault.unlock.failed",
		"remaining": remaining,
	}).Warn("invalid master password")
	return &InvalidPasswordError{Remaining: remaining}
}

// destroy is the lockout path: the vault file is removed on purpose.
func (s *Session) destroy() error {
	s.wipeKey()
	if err := s.store.Delete(); err != nil {
		return errors.Join(ErrLockedOut, err)
	}
	s.log.WithField("event", "vault.locked_out").Error("too many failed attempts, vault deleted")
	return ErrLockedOut
}

func (s *Session) load() (*Vault, error) {
	v, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("%w: no vault", ErrNotFound)
	}
	return v, nil
}

func (s *Session) hasKey() bool {
	return s.key != nil && s.key.IsAlive()
}

// setKey moves key into locked memory; the source slice is wiped.
func (s *Session) setKey(key []byte) {
	s.wipeKey()
	s.key = memguard.NewBufferFromBytes(key)
}

func (s *Session) wipeKey() {
	if s.key != nil {
		s.key.Destroy()
		s.key = nil
	}
}
