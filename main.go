package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"

	"github.com/bassamadnan/contractnotes/auth"
	"github.com/bassamadnan/contractnotes/config"
	"github.com/bassamadnan/contractnotes/download"
	"github.com/bassamadnan/contractnotes/gmail"
	"github.com/bassamadnan/contractnotes/imap"
	"github.com/bassamadnan/contractnotes/mailbox"
	"github.com/bassamadnan/contractnotes/tui"
)

const defaultConfigPath = "config/contractnotes.yaml"

func main() {
	flags := pflag.NewFlagSet("contractnotes", pflag.ExitOnError)
	flags.Int("limit", 7, "search emails from the last N days")
	flags.String("dir", "", "download directory (overrides download_dir)")
	flags.String("provider", "", "mail provider: gmail or imap")
	configPath := flags.String("config", defaultConfigPath, "path to the configuration file")
	useTUI := flags.Bool("tui", false, "show the interactive progress view")
	flags.Parse(os.Args[1:])

	if limit, _ := flags.GetInt("limit"); limit < 0 {
		fmt.Fprintln(os.Stderr, "--limit must be zero or positive")
		os.Exit(2)
	}

	cfgManager, err := config.NewManager(*configPath, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg := cfgManager.Config()

	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0660)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	log.SetOutput(logFile)
	log.Printf("Application starting (provider %s, %d day window)", cfg.Provider, cfg.DaysLimit)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Shutdown signal received, cancelling context...")
		cancel()
	}()

	mb, closeMailbox, err := openMailbox(ctx, cfg)
	if err != nil {
		if auth.IsAuthError(err) {
			fmt.Fprintf(os.Stderr, "Authentication failed: %v\n", err)
			log.Fatalf("Authentication failed: %v", err)
		}
		log.Printf("Failed to open mailbox: %v", err)
		fmt.Fprintf(os.Stderr, "Failed to open mailbox: %v\n", err)
		os.Exit(1)
	}
	defer closeMailbox()

	writer := download.NewWriter(afero.NewOsFs(), cfg.DownloadDir)
	brokers := cfg.EnabledBrokers()

	var report *download.Report
	if *useTUI {
		report, err = runTUI(ctx, cancel, mb, writer, cfg, brokers)
		if err != nil {
			log.Printf("Error running TUI: %v", err)
			fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
			os.Exit(1)
		}
	} else {
		fmt.Printf("Saving contract notes to: %s\n", writer.Dir())
		orc := download.New(mb, writer,
			download.WithObserver(tui.NewPrinter(os.Stdout)),
			download.WithNestedParts(cfg.NestedParts))
		report = orc.RunAll(ctx, brokers, cfg.DaysLimit)
	}

	log.Println("Run finished. Exiting.")
	if report == nil || report.Failed() {
		if report != nil {
			log.Printf("Run failures: %v", report.Err())
		}
		closeMailbox()
		logFile.Close()
		os.Exit(1)
	}
}

// openMailbox connects to the configured provider. The returned close
// function is safe to call more than once.
func openMailbox(ctx context.Context, cfg config.Config) (mailbox.Mailbox, func(), error) {
	switch cfg.Provider {
	case config.ProviderIMAP:
		ring, err := auth.OpenKeyring()
		if err != nil {
			return nil, nil, err
		}
		password, err := auth.Secret(ring, cfg.IMAP.PasswordKey)
		if err != nil {
			return nil, nil, err
		}
		client, err := imap.Dial(ctx, imap.Config{
			Host:     cfg.IMAP.Host,
			Port:     cfg.IMAP.Port,
			Username: cfg.IMAP.Username,
			Password: password,
			TLS:      cfg.IMAP.TLS,
			Mailbox:  cfg.IMAP.Mailbox,
		})
		if err != nil {
			return nil, nil, err
		}
		log.Printf("IMAP client connected to %s", cfg.IMAP.Host)
		closed := false
		return client, func() {
			if closed {
				return
			}
			closed = true
			if err := client.Close(); err != nil {
				log.Printf("IMAP: close: %v", err)
			}
		}, nil

	default:
		oauthCfg, err := auth.LoadOAuthConfig(cfg.Gmail.CredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		var store auth.TokenStore = auth.FileStore{Path: cfg.Gmail.TokenFile}
		if cfg.Gmail.TokenStore == config.TokenStoreKeyring {
			ring, err := auth.OpenKeyring()
			if err != nil {
				return nil, nil, err
			}
			store = auth.KeyringStore{Ring: ring, Key: "gmail-token"}
		}
		httpClient, err := auth.NewProvider(oauthCfg, store, auth.TerminalPrompt).HTTPClient(ctx)
		if err != nil {
			return nil, nil, err
		}
		client, err := gmail.NewClient(ctx, httpClient)
		if err != nil {
			return nil, nil, err
		}
		log.Println("Gmail client initialized.")
		return client, func() {}, nil
	}
}

// runTUI runs the download in the background and streams its events to the
// progress view. The report is returned once both have finished.
func runTUI(ctx context.Context, cancel context.CancelFunc, mb mailbox.Mailbox, writer *download.Writer, cfg config.Config, brokers []config.Broker) (*download.Report, error) {
	events := make(chan download.Event, 16)
	done := make(chan *download.Report, 1)

	orc := download.New(mb, writer,
		download.WithObserver(download.ChannelObserver(events)),
		download.WithNestedParts(cfg.NestedParts))
	go func() {
		defer close(events)
		done <- orc.RunAll(ctx, brokers, cfg.DaysLimit)
	}()

	p := tea.NewProgram(tui.NewModel(events, cancel, writer.Dir()), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return nil, err
	}

	// The view may quit early; keep draining so the run can finish.
	go func() {
		for range events {
		}
	}()
	report := <-done
	fmt.Println(report.Summary())
	return report, nil
}
