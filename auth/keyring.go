package auth

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/99designs/keyring"
)

const serviceName = "contractnotes"

// OpenKeyring opens the system keyring, falling back to an encrypted file
// under the user's config directory.
func OpenKeyring() (keyring.Keyring, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  filepath.Join(dir, serviceName, "credentials"),
		FilePasswordFunc:         keyring.TerminalPrompt,
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, &AuthError{Op: "open keyring", Err: err}
	}
	return ring, nil
}

// Secret reads a plain secret, such as the IMAP password, from ring.
func Secret(ring keyring.Keyring, key string) (string, error) {
	item, err := ring.Get(key)
	if err != nil {
		return "", &AuthError{Op: "read keyring secret", Err: fmt.Errorf("%q: %w", key, err)}
	}
	return string(item.Data), nil
}
