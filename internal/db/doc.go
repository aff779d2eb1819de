// Package db keeps the vault audit log in a SQLite database next to the
// vaults. Rows record which operation ran on which vault and whether it
// succeeded; they never contain passwords, keys or record contents.
package db
