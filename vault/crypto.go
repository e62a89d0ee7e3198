package vault

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func randBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}

func DefaultKDFParams() KDFParams { return KDFParams{Time: 3, Memory: 64 * 1024, Threads: 4} }

// Upper bounds for Argon2id cost read from a vault file.
const (
	MaxKDFTime      = 16
	MaxKDFMemoryKiB = 1024 * 1024
	MaxKDFThreads   = 16
)

// checkKDFParams rejects costs outside what DeriveKey will run with.
func checkKDFParams(p KDFParams) error {
	if p.Time == 0 || p.Threads == 0 || p.Memory < 8*uint32(p.Threads) {
		return fmt.Errorf("%w: invalid argon2 parameters", ErrKeyDerivation)
	}
	if p.Time > MaxKDFTime || p.Memory > MaxKDFMemoryKiB || p.Threads > MaxKDFThreads {
		return fmt.Errorf("%w: argon2 parameters exceed limits (time %d, memory %d KiB, threads %d)",
			ErrKeyDerivation, p.Time, p.Memory, p.Threads)
	}
	return nil
}

// DeriveKey stretches the passphrase with Argon2id and expands the result
// into the vault key with HKDF-SHA256. Same passphrase and salt always give
// the same key.
func DeriveKey(passphrase string, salt []byte, params KDFParams) ([]byte, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("%w: empty passphrase", ErrKeyDerivation)
	}
	if len(salt) == 0 {
		return nil, fmt.Errorf("%w: empty salt", ErrKeyDerivation)
	}
	if err := checkKDFParams(params); err != nil {
		return nil, err
	}

	pw := []byte(passphrase)
	master := argon2.IDKey(pw, salt, params.Time, params.Memory, params.Threads, KeyLen)
	zero(pw)
	defer zero(master)

	h := hkdf.New(sha256.New, master, nil, []byte(kdfInfo))
	key := make([]byte, KeyLen)
	if _, err := io.ReadFull(h, key); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyDerivation, err)
	}
	return key, nil
}

// Encrypt seals plaintext under key with a fresh random nonce.
func Encrypt(plaintext string, key []byte) (ciphertext, nonce []byte, err error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, nil, fmt.Errorf("vault: init cipher: %w", err)
	}
	nonce, err = randBytes(NonceLen)
	if err != nil {
		return nil, nil, fmt.Errorf("vault: generate nonce: %w", err)
	}
	return aead.Seal(nil, nonce, []byte(plaintext), nil), nonce, nil
}

// Decrypt opens ciphertext. Any wrong key, nonce or flipped bit yields
// ErrAuthFailed, never partial plaintext.
func Decrypt(ciphertext, nonce, key []byte) (string, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return "", fmt.Errorf("vault: init cipher: %w", err)
	}
	if len(nonce) != aead.NonceSize() {
		return "", ErrAuthFailed
	}
	pt, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrAuthFailed
	}
	if !utf8.Valid(pt) {
		zero(pt)
		return "", fmt.Errorf("%w: plaintext is not valid UTF-8", ErrCorrupt)
	}
	return string(pt), nil
}

func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".passvault-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath)
	}()

	if err := tmpFile.Chmod(perm); err != nil {
		return err
	}
	if _, err := tmpFile.Write(data); err != nil {
		return err
	}
	if err := tmpFile.Sync(); err != nil {
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}

	// The previous file stays in place until the rename succeeds.
	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}

	_ = syncDir(dir)
	return nil
}

func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
