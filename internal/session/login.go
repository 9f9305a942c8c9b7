package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/go-scripts/transcript/internal/browser"
	"github.com/go-scripts/transcript/internal/config"
)

var (
	ErrLoginAborted     = errors.New("login aborted by user")
	ErrLoginUnconfirmed = errors.New("login could not be confirmed")
)

// Acknowledger is the human side of the login flow. The OAuth handshake is
// completed by the user in the visible window; the flow only waits for them.
type Acknowledger interface {
	// AwaitLogin blocks until the user says the login is complete.
	AwaitLogin(ctx context.Context, loginURL string) error
	// ConfirmRetry asks whether to wait longer after a failed check.
	ConfirmRetry(ctx context.Context) (bool, error)
}

// Window is the visible browser window driven during login.
type Window interface {
	browser.Page
	Capture(ctx context.Context) (*State, error)
}

type chromeWindow struct {
	browser.Tab
}

func (chromeWindow) Capture(ctx context.Context) (*State, error) {
	return Capture(ctx)
}

// LoginFlow walks the user through a manual login and stores the session.
type LoginFlow struct {
	cfg        *config.Configuration
	store      *Store
	ack        Acknowledger
	heuristics Heuristics
}

func NewLoginFlow(cfg *config.Configuration, store *Store, ack Acknowledger) *LoginFlow {
	return &LoginFlow{
		cfg:        cfg,
		store:      store,
		ack:        ack,
		heuristics: DefaultHeuristics(),
	}
}

// Login opens a visible browser on the login page and, once the user has
// logged in, overwrites the session file with the new browser state.
func (f *LoginFlow) Login(ctx context.Context) (*State, error) {
	tabCtx, closeBrowser := browser.Launch(ctx, browser.OptionsFrom(f.cfg, false))
	defer closeBrowser()

	return f.run(tabCtx, chromeWindow{})
}

func (f *LoginFlow) run(ctx context.Context, w Window) (*State, error) {
	log.Info("opening login page", "url", f.cfg.LoginURL)

	navCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	err := w.Navigate(navCtx, f.cfg.LoginURL)
	cancel()
	if err != nil {
		return nil, err
	}
	if err := w.Sleep(ctx, f.cfg.SettleWait); err != nil {
		return nil, err
	}

	if err := f.ack.AwaitLogin(ctx, f.cfg.LoginURL); err != nil {
		return nil, fmt.Errorf("waiting for login: %w", err)
	}

	ok, err := Check(ctx, w, f.heuristics)
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Warn("login may not be complete")
		retry, err := f.ack.ConfirmRetry(ctx)
		if err != nil {
			return nil, fmt.Errorf("waiting for retry answer: %w", err)
		}
		if !retry {
			return nil, ErrLoginAborted
		}

		log.Info("waiting for login to finish", "wait", f.cfg.LoginExtendedWait)
		if err := w.Sleep(ctx, f.cfg.LoginExtendedWait); err != nil {
			return nil, err
		}
		if ok, err = Check(ctx, w, f.heuristics); err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrLoginUnconfirmed
		}
	}

	st, err := w.Capture(ctx)
	if err != nil {
		return nil, err
	}
	if err := f.store.Save(st); err != nil {
		return nil, err
	}

	log.Info("session saved", append([]interface{}{"path", f.store.Path()}, summarize(st)...)...)
	log.Debug("session contents", "state", st.String())
	return st, nil
}
