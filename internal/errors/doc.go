// Package errors provides the error kinds and sentinel values shared by the
// vault packages.
//
// Every failure surfaced by krypto, store, auth and the service layer carries
// one of six kinds: AuthenticationFailed, CryptoError, StorageError,
// VaultNotFound, AccountNotFound and InvalidInput. Callers branch on the kind
// with KindOf, or on a specific condition with the standard errors.Is:
//
//	if pmerr.KindOf(err) == pmerr.KindAuthenticationFailed {
//	    // wrong password, not authenticated, or locked out
//	}
//	if errors.Is(err, pmerr.ErrLockedOut) {
//	    // reported distinctly from a plain authentication failure
//	}
//
// Wrap adds an operation name and a kind to a lower level error:
//
//	return pmerr.Wrap(pmerr.KindStorage, "rename temp vault", err)
//
// No error is retried automatically by any package in this module.
package errors
