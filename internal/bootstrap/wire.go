package bootstrap

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"inkwell/internal/config"
	"inkwell/internal/ports"
	"inkwell/internal/providers/remoteid"
	"inkwell/internal/securestore"
	"inkwell/internal/store"
	"inkwell/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Machine     *usecase.LifecycleMachine
	Resolver    *usecase.AuthResolver
	Settings    ports.SettingsStore
	Progress    ports.OnboardingProgressStore
	Credentials ports.SecureCredentialStore
	Identity    *remoteid.Client
	Biometric   ports.BiometricAuthenticator
	Config      config.Config
	Logger      *log.Logger
	Close       func() error
}

// Build wires all backend dependencies for the current runtime. The event
// sink and biometric authenticator are platform-supplied.
func Build(events ports.EventSink, biometric ports.BiometricAuthenticator) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}

	logger := newLogger(cfg.Log.Level)

	if err := os.MkdirAll(cfg.Data.Dir, 0o700); err != nil {
		return Services{}, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := store.Open(cfg.Data.DatabaseFile)
	if err != nil {
		return Services{}, err
	}

	settings, err := store.NewSettings(db)
	if err != nil {
		db.Close()
		return Services{}, err
	}
	progress := store.NewProgress(db)

	credentials, err := securestore.NewFileStore(cfg.Data.CredentialDir)
	if err != nil {
		db.Close()
		return Services{}, err
	}

	identity := remoteid.NewClient(remoteid.Config{
		APIKey:  cfg.Remote.APIKey,
		BaseURL: cfg.Remote.APIBase,
		Timeout: cfg.Remote.Timeout,
	})

	machine := usecase.NewLifecycleMachine(settings, progress, identity, identity, events, logger)
	resolver := usecase.NewAuthResolver(settings, credentials, identity, logger)

	return Services{
		Machine:     machine,
		Resolver:    resolver,
		Settings:    settings,
		Progress:    progress,
		Credentials: credentials,
		Identity:    identity,
		Biometric:   biometric,
		Config:      cfg,
		Logger:      logger,
		Close:       db.Close,
	}, nil
}

func newLogger(level string) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if parsed, err := log.ParseLevel(level); err == nil {
		logger.SetLevel(parsed)
	}
	return logger
}
