// Package krypto implements the vault's key derivation and authenticated
// encryption.
//
// Keys are derived with Argon2id from a master password and a 16-byte salt,
// held in memguard locked buffers, and used with AES-256-GCM. Ciphertexts are
// laid out as nonce(12) || ciphertext || tag(16).
package krypto
