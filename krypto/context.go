package krypto

import (
	pmerr "github.com/Hussein-Mazeh/passman/internal/errors"
)

// Context binds a vault key to the salt it was derived from. A Context is
// created for each vault open or creation and owns its key exclusively.
type Context struct {
	key  *SecureKey
	salt Salt
}

// NewContext derives a key for a brand new vault under a freshly generated salt.
func NewContext(password []byte) (*Context, error) {
	key, salt, err := GenerateAndDerive(password)
	if err != nil {
		return nil, err
	}
	return &Context{key: key, salt: salt}, nil
}

// DeriveContext re-derives the key of an existing vault from its stored salt.
func DeriveContext(password []byte, salt Salt) (*Context, error) {
	key, err := Derive(password, salt)
	if err != nil {
		return nil, err
	}
	return &Context{key: key, salt: salt}, nil
}

// Salt returns the salt the key was derived with.
func (c *Context) Salt() Salt { return c.salt }

// Alive reports whether the key is still usable.
func (c *Context) Alive() bool { return c != nil && c.key.Alive() }

// Seal encrypts plaintext under the context key.
func (c *Context) Seal(plaintext []byte) ([]byte, error) {
	if !c.Alive() {
		return nil, pmerr.ErrKeyDestroyed
	}
	return Encrypt(c.key, plaintext)
}

// Open decrypts data sealed under the context key.
func (c *Context) Open(data []byte) ([]byte, error) {
	if !c.Alive() {
		return nil, pmerr.ErrKeyDestroyed
	}
	return Decrypt(c.key, data)
}

// Destroy zeroes the key. The context is unusable afterwards.
func (c *Context) Destroy() {
	if c == nil {
		return
	}
	c.key.Destroy()
}

func (c *Context) String() string { return "krypto.Context(redacted)" }
