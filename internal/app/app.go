package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"pkt.systems/pslog"

	"github.com/five82/adindex/internal/adindex"
	"github.com/five82/adindex/internal/config"
	"github.com/five82/adindex/internal/localstore"
	"github.com/five82/adindex/internal/logging"
	"github.com/five82/adindex/internal/pushsync"
	"github.com/five82/adindex/internal/session"
	"github.com/five82/adindex/internal/state"
	"github.com/five82/adindex/internal/ui"
	"github.com/five82/adindex/internal/webpush"
)

// Options configure the adindex application. Non-empty fields override the
// config file.
type Options struct {
	ConfigPath string
	APIURL     string
	LogLevel   string
	// InitialPath is the history path to open, such as "#view/12".
	InitialPath string
}

// App holds the long-lived collaborators. Close releases the log file.
type App struct {
	cfg       config.Config
	log       pslog.Logger
	logCloser io.Closer
	store     *localstore.Store
	client    *adindex.Client
	push      *webpush.FileRegistration
}

// New loads configuration and opens the local store, the log file and the
// push registration. Nothing talks to the server yet.
func New(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if v := strings.TrimSpace(opts.APIURL); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(opts.LogLevel); v != "" {
		cfg.LogLevel = v
	}

	log, closer, err := logging.OpenFile(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, log: log, logCloser: closer}

	a.store, err = localstore.Open(cfg.StorePath())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open local store: %w", err)
	}
	a.client, err = adindex.NewClient(cfg.APIURL, cfg.RequestTimeout())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init api client: %w", err)
	}
	a.push, err = webpush.NewFileRegistration(cfg.SubscriptionPath(), cfg.PushServiceURL)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init push registration: %w", err)
	}
	return a, nil
}

// Config returns the effective configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// Context returns ctx carrying the application logger.
func (a *App) Context(ctx context.Context) context.Context {
	return logging.ContextWithLogger(ctx, a.log)
}

// Bootstrapper returns the session bootstrap over the app's collaborators.
func (a *App) Bootstrapper() session.Bootstrapper {
	return session.Bootstrapper{API: a.client, Store: a.store, Push: a.push}
}

// Run bootstraps the session and runs the TUI until the user quits or ctx is
// cancelled. A failed bootstrap shows the error page and is returned once the
// user leaves it.
func (a *App) Run(ctx context.Context, opts Options) error {
	ctx = a.Context(ctx)
	a.log.Info("adindex starting", "api", a.cfg.APIURL, "store", a.store.Path())

	res, err := a.Bootstrapper().Bootstrap(ctx)
	if err != nil {
		a.log.Error("session bootstrap failed", "error", err)
		if uiErr := ui.Run(ui.Options{
			Context: ctx,
			APIURL:  a.cfg.APIURL,
			LogPath: a.cfg.LogFile,
			Fatal:   err,
		}); uiErr != nil {
			return errors.Join(err, uiErr)
		}
		return err
	}
	sess := res.Session
	logging.WithSession(a.log, sess.SessionID).Info("session ready", "replaced", res.Replaced, "discarded_subscription", res.Discarded)

	sync := pushsync.New(a.client, a.push, sess, pushsync.WithLogger(a.log))

	store := &state.Store{}
	pollCtx, stopPolling := context.WithCancel(ctx)
	defer stopPolling()
	Poller{
		Store:    store,
		Client:   a.client,
		Interval: a.cfg.StatusPollInterval(),
	}.Start(pollCtx)

	theme, _ := a.store.Get(localstore.KeyTheme)
	return ui.Run(ui.Options{
		Context:     ctx,
		Client:      a.client,
		Session:     sess,
		Sync:        sync,
		Store:       store,
		Prefs:       a.store,
		InitialPath: opts.InitialPath,
		ThemeName:   theme,
		APIURL:      a.cfg.APIURL,
		LogPath:     a.cfg.LogFile,
	})
}

// Close releases the log file.
func (a *App) Close() error {
	if a.logCloser == nil {
		return nil
	}
	err := a.logCloser.Close()
	a.logCloser = nil
	return err
}
