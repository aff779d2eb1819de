// Package auth governs access to an open vault.
//
// Manager is a three-state machine (Unauthenticated, Authenticated, LockedOut)
// that owns the vault's crypto context. Key material is handed out only while
// the session is Authenticated and unexpired; expiry is checked lazily on
// each access. Consecutive failed attempts lock the manager out until Logout.
//
// ValidateMasterPassword applies the composition, zxcvbn and optional HIBP
// checks to new master passwords.
package auth
