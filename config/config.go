package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ProviderGmail = "gmail"
	ProviderIMAP  = "imap"

	TokenStoreFile    = "file"
	TokenStoreKeyring = "keyring"
)

// Broker describes one broker whose emails carry contract notes.
type Broker struct {
	Name          string `mapstructure:"name" yaml:"name"`
	SenderDomain  string `mapstructure:"sender_domain" yaml:"sender_domain"`
	SubjectPhrase string `mapstructure:"subject_phrase" yaml:"subject_phrase"`
	Enabled       bool   `mapstructure:"enabled" yaml:"enabled"`
}

// GmailConfig holds OAuth client and token locations.
type GmailConfig struct {
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file"`
	TokenFile       string `mapstructure:"token_file" yaml:"token_file"`
	TokenStore      string `mapstructure:"token_store" yaml:"token_store"`
}

// IMAPConfig holds server settings. The password lives in the keyring
// under PasswordKey.
type IMAPConfig struct {
	Host        string `mapstructure:"host" yaml:"host"`
	Port        string `mapstructure:"port" yaml:"port"`
	Username    string `mapstructure:"username" yaml:"username"`
	PasswordKey string `mapstructure:"password_key" yaml:"password_key"`
	TLS         bool   `mapstructure:"tls" yaml:"tls"`
	Mailbox     string `mapstructure:"mailbox" yaml:"mailbox"`
}

// Config is the full application configuration.
type Config struct {
	Provider    string      `mapstructure:"provider" yaml:"provider"`
	DownloadDir string      `mapstructure:"download_dir" yaml:"download_dir"`
	DaysLimit   int         `mapstructure:"days_limit" yaml:"days_limit"`
	NestedParts bool        `mapstructure:"nested_parts" yaml:"nested_parts"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	Gmail       GmailConfig `mapstructure:"gmail" yaml:"gmail"`
	IMAP        IMAPConfig  `mapstructure:"imap" yaml:"imap"`
	Brokers     []Broker    `mapstructure:"brokers" yaml:"brokers"`
}

// EnabledBrokers returns the enabled brokers in configuration order.
func (c Config) EnabledBrokers() []Broker {
	var out []Broker
	for _, b := range c.Brokers {
		if b.Enabled {
			out = append(out, b)
		}
	}
	return out
}

// DefaultBrokers is the broker list written to a fresh config file.
func DefaultBrokers() []Broker {
	return []Broker{
		{Name: "Zerodha", SenderDomain: "zerodha.com", SubjectPhrase: "Contract Note", Enabled: false},
		{Name: "PayTM Money", SenderDomain: "paytmmoney.com", SubjectPhrase: "Trade Successful - Consolidated Contract Note", Enabled: true},
		{Name: "Dhan", SenderDomain: "dhan.co", SubjectPhrase: "Contract Note (Cash F&O and Currency) - Trade", Enabled: false},
	}
}

// DefaultDownloadDir is ~/Downloads/Contract Notes.
func DefaultDownloadDir() string {
	return filepath.Join("~", "Downloads", "Contract Notes")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", ProviderGmail)
	v.SetDefault("download_dir", DefaultDownloadDir())
	v.SetDefault("days_limit", 7)
	v.SetDefault("nested_parts", false)
	v.SetDefault("log_file", "contractnotes.log")
	v.SetDefault("gmail.credentials_file", "credentials.json")
	v.SetDefault("gmail.token_file", "token.json")
	v.SetDefault("gmail.token_store", TokenStoreFile)
	v.SetDefault("imap.port", "993")
	v.SetDefault("imap.tls", true)
	v.SetDefault("imap.mailbox", "INBOX")
	v.SetDefault("imap.password_key", "imap-password")
}

// BrokerError reports a broker entry that cannot be turned into a query.
type BrokerError struct {
	Index  int
	Name   string
	Reason string
}

func (e *BrokerError) Error() string {
	return fmt.Sprintf("broker %d (%q): %s", e.Index, e.Name, e.Reason)
}

// Manager loads the configuration file and hands out immutable copies.
type Manager struct {
	filePath string
	v        *viper.Viper
	cfg      Config
	mu       sync.RWMutex
}

// NewManager creates a manager for filePath. A missing file is created with
// defaults. Flags, when given, override file values for the keys they are
// bound to.
func NewManager(filePath string, flags *pflag.FlagSet) (*Manager, error) {
	v := viper.New()
	v.SetConfigFile(filePath)
	setDefaults(v)
	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}
	m := &Manager{filePath: filePath, v: v}
	if err := m.Load(); err != nil {
		return nil, err
	}
	return m, nil
}

var flagKeys = map[string]string{
	"limit":    "days_limit",
	"dir":      "download_dir",
	"provider": "provider",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding flag --%s: %w", name, err)
		}
	}
	return nil
}

// Load reads the configuration file, creating it if it does not exist,
// and validates it.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, os.ErrNotExist) && !errors.As(err, &notFound) {
			return fmt.Errorf("reading config %s: %w", m.filePath, err)
		}
		m.v.SetDefault("brokers", DefaultBrokers())
		if err := m.save(); err != nil {
			return err
		}
	}

	var cfg Config
	if err := m.v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("parsing config %s: %w", m.filePath, err)
	}
	dir, err := expandHome(cfg.DownloadDir)
	if err != nil {
		return err
	}
	cfg.DownloadDir = dir
	if err := Validate(cfg); err != nil {
		return err
	}
	m.cfg = cfg
	return nil
}

// save writes the current settings to the config file.
func (m *Manager) save() error {
	dir := filepath.Dir(m.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	if err := m.v.WriteConfigAs(m.filePath); err != nil {
		return fmt.Errorf("writing config to %s: %w", m.filePath, err)
	}
	return nil
}

// Config returns a copy of the loaded configuration.
func (m *Manager) Config() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c := m.cfg
	c.Brokers = append([]Broker(nil), m.cfg.Brokers...)
	return c
}

// Validate checks settings and every broker entry.
func Validate(c Config) error {
	switch c.Provider {
	case ProviderGmail:
		if c.Gmail.TokenStore != TokenStoreFile && c.Gmail.TokenStore != TokenStoreKeyring {
			return fmt.Errorf("unknown gmail.token_store %q", c.Gmail.TokenStore)
		}
	case ProviderIMAP:
		if c.IMAP.Host == "" || c.IMAP.Username == "" {
			return errors.New("imap provider requires imap.host and imap.username")
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.DaysLimit < 0 {
		return fmt.Errorf("days_limit must not be negative, got %d", c.DaysLimit)
	}
	for i, b := range c.Brokers {
		if err := validateBroker(i, b); err != nil {
			return err
		}
	}
	return nil
}

func validateBroker(i int, b Broker) error {
	switch {
	case strings.TrimSpace(b.Name) == "":
		return &BrokerError{Index: i, Name: b.Name, Reason: "name is empty"}
	case strings.TrimSpace(b.SenderDomain) == "":
		return &BrokerError{Index: i, Name: b.Name, Reason: "sender_domain is empty"}
	case strings.ContainsAny(b.SenderDomain, " \t\r\n"):
		return &BrokerError{Index: i, Name: b.Name, Reason: "sender_domain contains whitespace"}
	case strings.TrimSpace(b.SubjectPhrase) == "":
		return &BrokerError{Index: i, Name: b.Name, Reason: "subject_phrase is empty"}
	case strings.Contains(b.SubjectPhrase, `"`):
		// Gmail has no escape for a quote inside a quoted phrase.
		return &BrokerError{Index: i, Name: b.Name, Reason: "subject_phrase must not contain a double quote"}
	}
	return nil
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") && !strings.HasPrefix(p, "~"+string(filepath.Separator)) {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory for %s: %w", p, err)
	}
	return filepath.Join(home, p[1:]), nil
}
