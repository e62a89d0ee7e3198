package ipc

import (
	"errors"

	"github.com/fahmaliyi/passvault/vault"
)

var (
	ErrBadRequest     = errors.New("ipc: bad request")
	ErrUnknownCommand = errors.New("ipc: unknown command")
	ErrRateLimited    = errors.New("ipc: too many attempts, slow down")
)

const (
	CodeWeakPassword    = "weak_password"
	CodeAlreadyExists   = "already_exists"
	CodeNotFound        = "not_found"
	CodeInvalidPassword = "invalid_password"
	CodeLockedOut       = "locked_out"
	CodeVaultLocked     = "vault_locked"
	CodeAuthentication  = "authentication"
	CodeFormat          = "format"
	CodeIO              = "io"
	CodeKeyDerivation   = "key_derivation"
	CodeRateLimited     = "rate_limited"
	CodeBadRequest      = "bad_request"
	CodeUnknownCommand  = "unknown_command"
	CodeInternal        = "internal"
)

// codes is checked in order; ErrLockedOut may be joined with an i/o error
// and must win.
var codes = []struct {
	err  error
	code string
}{
	{vault.ErrLockedOut, CodeLockedOut},
	{vault.ErrInvalidPassword, CodeInvalidPassword},
	{vault.ErrWeakPassword, CodeWeakPassword},
	{vault.ErrAlreadyExists, CodeAlreadyExists},
	{vault.ErrNotFound, CodeNotFound},
	{vault.ErrLocked, CodeVaultLocked},
	{vault.ErrAuthFailed, CodeAuthentication},
	{vault.ErrCorrupt, CodeFormat},
	{vault.ErrKeyDerivation, CodeKeyDerivation},
	{vault.ErrIO, CodeIO},
	{ErrRateLimited, CodeRateLimited},
	{ErrBadRequest, CodeBadRequest},
	{ErrUnknownCommand, CodeUnknownCommand},
}

// Code maps err to its stable wire code.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

func toError(err error) *Error {
	e := &Error{Code: Code(err), Message: err.Error()}
	var ipe *vault.InvalidPasswordError
	if errors.As(err, &ipe) {
		remaining := ipe.Remaining
		e.Remaining = &remaining
	}
	return e
}
