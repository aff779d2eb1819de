package errors

import (
	"errors"
)

// Kind classifies a failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuthenticationFailed
	KindCrypto
	KindStorage
	KindVaultNotFound
	KindAccountNotFound
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindAuthenticationFailed:
		return "AuthenticationFailed"
	case KindCrypto:
		return "CryptoError"
	case KindStorage:
		return "StorageError"
	case KindVaultNotFound:
		return "VaultNotFound"
	case KindAccountNotFound:
		return "AccountNotFound"
	case KindInvalidInput:
		return "InvalidInput"
	default:
		return "Unknown"
	}
}

// Error attaches a Kind and an optional operation name to an underlying error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// New returns a sentinel error of the given kind.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Err: errors.New(msg)}
}

// Wrap annotates err with kind and op. It returns nil when err is nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf reports the kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Authentication errors.
var (
	// ErrAuthFailed is returned for a wrong password or a vault that fails to
	// decrypt. The two causes are deliberately reported the same way.
	ErrAuthFailed = New(KindAuthenticationFailed, "authentication failed")

	// ErrLockedOut is returned once the failed-attempt limit is reached.
	ErrLockedOut = New(KindAuthenticationFailed, "too many failed attempts; vault locked")

	// ErrNotAuthenticated is returned when an operation needs an open vault.
	ErrNotAuthenticated = New(KindAuthenticationFailed, "vault locked")

	// ErrSessionExpired is returned the first time an expired session is used.
	ErrSessionExpired = New(KindAuthenticationFailed, "session expired")
)

// Crypto errors.
var (
	ErrDecrypt            = New(KindCrypto, "message authentication failed")
	ErrCiphertextTooShort = New(KindCrypto, "ciphertext too short")
	ErrInvalidSalt        = New(KindCrypto, "invalid salt length")
	ErrKeyDestroyed       = New(KindCrypto, "key material has been destroyed")
)

// Storage errors.
var (
	ErrShortFile         = New(KindStorage, "vault file is truncated")
	ErrMalformedDocument = New(KindStorage, "vault document is malformed")
	ErrVaultBusy         = New(KindStorage, "vault is open in another process")
)

// Lookup errors.
var (
	ErrVaultNotFound   = New(KindVaultNotFound, "vault not found")
	ErrAccountNotFound = New(KindAccountNotFound, "account not found")
)

// Input errors.
var (
	ErrVaultExists   = New(KindInvalidInput, "vault already exists")
	ErrInvalidName   = New(KindInvalidInput, "invalid vault name")
	ErrEmptyPassword = New(KindInvalidInput, "password is required")
)
