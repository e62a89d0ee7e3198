package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/fahmaliyi/passvault/vault"
)

// Login creates the vault when none exists and unlocks it otherwise. It
// keeps asking after a wrong or weak passphrase and gives up on read
// errors or lockout.
func Login(s *vault.Session, readSecret SecretReader, out io.Writer) error {
	if s.Exists() {
		return unlock(s, readSecret, out)
	}

	fmt.Fprintln(out, "No vault found. Setting up new master password.")
	for {
		pw, ok, err := newPassphrase(readSecret, out, "Set master password: ")
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		err = s.Create(pw)
		if errors.Is(err, vault.ErrWeakPassword) {
			fmt.Fprintf(out, "Master password must be at least %d characters.\n", vault.MinPassphraseLen)
			continue
		}
		if err == nil {
			fmt.Fprintln(out, "Vault created.")
		}
		return err
	}
}

func unlock(s *vault.Session, readSecret SecretReader, out io.Writer) error {
	for {
		pw, err := readSecret("Enter master password: ")
		if err != nil {
			return err
		}

		err = s.Unlock(pw)
		var ipe *vault.InvalidPasswordError
		if errors.As(err, &ipe) {
			fmt.Fprintf(out, "Wrong master password. %d attempts left before the vault is deleted.\n", ipe.Remaining)
			continue
		}
		if errors.Is(err, vault.ErrLockedOut) {
			fmt.Fprintln(out, "Too many failed attempts. The vault has been deleted.")
		}
		return err
	}
}

// newPassphrase asks twice; ok is false when the two entries differ.
func newPassphrase(readSecret SecretReader, out io.Writer, label string) (pw string, ok bool, err error) {
	pw, err = readSecret(label)
	if err != nil {
		return "", false, err
	}
	confirm, err := readSecret("Confirm: ")
	if err != nil {
		return "", false, err
	}
	if pw != confirm {
		fmt.Fprintln(out, "Passwords do not match.")
		return "", false, nil
	}
	return pw, true, nil
}
