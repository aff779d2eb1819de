package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hussein-Mazeh/passman/internal/config"
	pmerr "github.com/Hussein-Mazeh/passman/internal/errors"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	root := t.TempDir()

	cfg, err := config.Load(root)
	require.NoError(t, err)
	assert.Equal(t, config.Default(root), cfg)
	assert.Equal(t, 15*time.Minute, cfg.SessionTimeout())
	assert.Equal(t, filepath.Join(root, "audit.db"), cfg.AuditPath())
}

func TestLoadOverridesDefaults(t *testing.T) {
	root := t.TempDir()
	data := `
default_vault = "work"

[session]
max_failed_attempts = 3
timeout_minutes = 5

[backup]
retention = 4
`
	require.NoError(t, os.WriteFile(config.Path(root), []byte(data), 0o600))

	cfg, err := config.Load(root)
	require.NoError(t, err)
	assert.Equal(t, "work", cfg.DefaultVault)
	assert.Equal(t, 3, cfg.Session.MaxFailedAttempts)
	assert.Equal(t, 5*time.Minute, cfg.SessionTimeout())
	assert.Equal(t, 4, cfg.Backup.Retention)
	assert.Equal(t, 12, cfg.Policy.MinLength, "unset keys keep their default")
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"zero attempts": "[session]\nmax_failed_attempts = 0\n",
		"unknown key":   "colour = \"blue\"\n",
		"bad format":    "[log]\nformat = \"xml\"\n",
		"bad toml":      "[session\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			root := t.TempDir()
			require.NoError(t, os.WriteFile(config.Path(root), []byte(data), 0o600))
			_, err := config.Load(root)
			assert.True(t, pmerr.Is(err, pmerr.KindInvalidInput), "got %v", err)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested")
	cfg := config.Default(root)
	cfg.DefaultVault = "personal"
	cfg.Policy.CheckBreach = true

	require.NoError(t, config.Save(cfg))

	fi, err := os.Stat(config.Path(root))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())

	back, err := config.Load(root)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}

func TestDefaultRootHonoursEnv(t *testing.T) {
	t.Setenv(config.EnvHome, "/tmp/passman-test-root")
	root, err := config.DefaultRoot()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/passman-test-root", root)
}
