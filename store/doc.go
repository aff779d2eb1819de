// Package store persists encrypted vault documents on disk.
//
// Layout under the configured root:
//
//	<root>/vaults/<name>.vault                               salt || nonce || ciphertext || tag
//	<root>/vaults/.<name>.lock                               advisory lock
//	<root>/vaults/backups/vault_backup_<UTC ts>_<name>.vault  previous versions
//
// Saves go through a temp file in the vault directory that is synced and
// renamed over the canonical path, so a crash leaves either the old or the
// new file in place. Files are created 0600 and directories 0700.
package store
