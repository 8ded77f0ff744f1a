package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/99designs/keyring"
	"golang.org/x/oauth2"
)

// ErrNoToken is returned by a TokenStore that holds no credential yet.
var ErrNoToken = errors.New("no stored token")

// TokenStore persists the OAuth credential between runs.
type TokenStore interface {
	Load() (*oauth2.Token, error)
	Save(*oauth2.Token) error
}

// FileStore keeps the token as JSON in a file only the user can read.
type FileStore struct {
	Path string
}

func (s FileStore) Load() (*oauth2.Token, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoToken
		}
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("decoding token file %s: %w", s.Path, err)
	}
	return tok, nil
}

func (s FileStore) Save(tok *oauth2.Token) error {
	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating token directory %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(s.Path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("unable to save oauth token: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(tok)
}

// KeyringStore keeps the token in the system keyring under Key.
type KeyringStore struct {
	Ring keyring.Keyring
	Key  string
}

func (s KeyringStore) Load() (*oauth2.Token, error) {
	item, err := s.Ring.Get(s.Key)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("getting credential %q: %w", s.Key, err)
	}
	tok := &oauth2.Token{}
	if err := json.Unmarshal(item.Data, tok); err != nil {
		return nil, fmt.Errorf("decoding credential %q: %w", s.Key, err)
	}
	return tok, nil
}

func (s KeyringStore) Save(tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	err = s.Ring.Set(keyring.Item{
		Key:         s.Key,
		Data:        data,
		Label:       "contractnotes gmail token",
		Description: "OAuth token for reading contract note emails",
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", s.Key, err)
	}
	return nil
}
