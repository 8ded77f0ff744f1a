package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestNewManager_CreatesDefaultFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(t.TempDir(), "nested", "contractnotes.yaml")

	m, err := NewManager(path, nil)
	require.NoError(t, err)

	_, statErr := os.Stat(path)
	require.NoError(t, statErr, "config file should be created on first run")

	cfg := m.Config()
	assert.Equal(t, ProviderGmail, cfg.Provider)
	assert.Equal(t, 7, cfg.DaysLimit)
	assert.Equal(t, filepath.Join(home, "Downloads", "Contract Notes"), cfg.DownloadDir)
	require.Len(t, cfg.Brokers, 3)

	enabled := cfg.EnabledBrokers()
	require.Len(t, enabled, 1)
	assert.Equal(t, "paytmmoney.com", enabled[0].SenderDomain)

	// The written file loads back to the same brokers.
	again, err := NewManager(path, nil)
	require.NoError(t, err)
	assert.Equal(t, cfg.Brokers, again.Config().Brokers)
}

func TestNewManager_ReadsBrokersInOrder(t *testing.T) {
	path := writeFile(t, t.TempDir(), "c.yaml", `
download_dir: /tmp/notes
brokers:
  - name: Dhan
    sender_domain: dhan.co
    subject_phrase: Contract Note
    enabled: true
  - name: Zerodha
    sender_domain: zerodha.com
    subject_phrase: Contract Note
    enabled: false
  - name: Groww
    sender_domain: groww.in
    subject_phrase: Contract Note
    enabled: true
`)

	m, err := NewManager(path, nil)
	require.NoError(t, err)

	cfg := m.Config()
	assert.Equal(t, "/tmp/notes", cfg.DownloadDir)
	enabled := cfg.EnabledBrokers()
	require.Len(t, enabled, 2)
	assert.Equal(t, "Dhan", enabled[0].Name)
	assert.Equal(t, "Groww", enabled[1].Name)
}

func TestNewManager_RejectsQuotedSubject(t *testing.T) {
	path := writeFile(t, t.TempDir(), "c.yaml", `
brokers:
  - name: Bad
    sender_domain: bad.com
    subject_phrase: 'Your "note"'
    enabled: true
`)

	_, err := NewManager(path, nil)
	require.Error(t, err)

	var brokerErr *BrokerError
	require.True(t, errors.As(err, &brokerErr))
	assert.Equal(t, 0, brokerErr.Index)
	assert.Equal(t, "Bad", brokerErr.Name)
}

func TestNewManager_FlagsOverrideFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "c.yaml", "days_limit: 30\ndownload_dir: /tmp/a\n")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("limit", 7, "")
	flags.String("dir", "", "")
	require.NoError(t, flags.Parse([]string{"--limit", "3"}))

	m, err := NewManager(path, flags)
	require.NoError(t, err)

	cfg := m.Config()
	assert.Equal(t, 3, cfg.DaysLimit)
	assert.Equal(t, "/tmp/a", cfg.DownloadDir, "unset flags must not override the file")
}

func TestConfig_ReturnsCopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	m, err := NewManager(path, nil)
	require.NoError(t, err)

	cfg := m.Config()
	cfg.Brokers[0].Name = "changed"

	assert.NotEqual(t, "changed", m.Config().Brokers[0].Name)
}

func TestValidate(t *testing.T) {
	good := Config{
		Provider:  ProviderGmail,
		Gmail:     GmailConfig{TokenStore: TokenStoreFile},
		DaysLimit: 7,
		Brokers:   DefaultBrokers(),
	}
	require.NoError(t, Validate(good))

	negative := good
	negative.DaysLimit = -1
	assert.Error(t, Validate(negative))

	unknown := good
	unknown.Provider = "pop3"
	assert.Error(t, Validate(unknown))

	imapMissingHost := good
	imapMissingHost.Provider = ProviderIMAP
	assert.Error(t, Validate(imapMissingHost))

	spaced := good
	spaced.Brokers = []Broker{{Name: "x", SenderDomain: "a b.com", SubjectPhrase: "s"}}
	var brokerErr *BrokerError
	assert.True(t, errors.As(Validate(spaced), &brokerErr))
}
