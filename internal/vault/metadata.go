package vault

import (
	"time"

	"github.com/Hussein-Mazeh/passman/internal/generator"
)

// FormatVersion is written into every new document.
const FormatVersion = "1.0.0"

// Settings holds per-vault user preferences. They travel inside the encrypted
// document, so they are only readable once the vault is open.
type Settings struct {
	AutoLockMinutes         uint32            `json:"autoLockMinutes"`
	RequireConfirmation     bool              `json:"requireConfirmation"`
	AutoClearClipboard      bool              `json:"autoClearClipboard"`
	ClipboardTimeoutSeconds uint32            `json:"clipboardTimeoutSeconds"`
	ShowStrengthIndicators  bool              `json:"showStrengthIndicators"`
	DefaultPasswordOptions  generator.Options `json:"defaultPasswordOptions"`
}

// DefaultSettings returns the settings a new vault starts with.
func DefaultSettings() Settings {
	return Settings{
		AutoLockMinutes:         15,
		RequireConfirmation:     true,
		AutoClearClipboard:      true,
		ClipboardTimeoutSeconds: 30,
		ShowStrengthIndicators:  true,
		DefaultPasswordOptions:  generator.DefaultOptions(),
	}
}

// Metadata describes the document as a whole.
type Metadata struct {
	Version      string    `json:"version"`
	Owner        string    `json:"owner"`
	CreatedAt    time.Time `json:"createdAt"`
	LastModified time.Time `json:"lastModified"`
	AccountCount int       `json:"accountCount"`
	Settings     Settings  `json:"settings"`
}
