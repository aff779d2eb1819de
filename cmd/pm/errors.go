package main

import (
	"errors"
	"fmt"
	"io"

	pmerr "github.com/Hussein-Mazeh/passman/internal/errors"
)

// userError is a failure caused by the invocation rather than the vault.
type userError struct {
	msg string
}

func (e userError) Error() string { return e.msg }

func userErrorf(format string, a ...any) error {
	return userError{msg: fmt.Sprintf(format, a...)}
}

const (
	exitUser     = 1
	exitInternal = 2
	exitAuth     = 3
)

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	var uerr userError
	if errors.As(err, &uerr) {
		return exitUser
	}
	switch pmerr.KindOf(err) {
	case pmerr.KindInvalidInput, pmerr.KindAccountNotFound, pmerr.KindVaultNotFound:
		return exitUser
	case pmerr.KindAuthenticationFailed:
		return exitAuth
	default:
		return exitInternal
	}
}

// handleError prints err and returns the exit status for it.
func handleError(w io.Writer, err error) int {
	code := exitCode(err)
	switch code {
	case exitUser:
		fmt.Fprintln(w, errorText.Sprint(err.Error()))
	case exitAuth:
		fmt.Fprintln(w, errorText.Sprint(err.Error()))
		if errors.Is(err, pmerr.ErrLockedOut) {
			fmt.Fprintln(w, hint.Sprint("too many failed attempts in this process; run pm again to retry"))
		}
	default:
		fmt.Fprintf(w, "%s %v\n", errorText.Sprint("unexpected error:"), err)
	}
	return code
}
