package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-scripts/transcript/internal/browser/browsertest"
	"github.com/go-scripts/transcript/internal/config"
)

func sampleState() *State {
	return &State{
		Cookies: []Cookie{
			{Name: "sid", Value: "abc", Domain: "cokac.com", Path: "/", Expires: -1, HTTPOnly: true, Secure: true, SameSite: "Lax"},
		},
		Origins: []OriginState{
			{Origin: "https://cokac.com", LocalStorage: []StorageEntry{{Name: "token", Value: "t1"}}},
		},
	}
}

func TestStoreLoadMissing(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nope.json"))

	_, err := store.Load()
	assert.ErrorIs(t, err, ErrSessionMissing)
}

func TestStoreLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "corrupt json", content: "{not json"},
		{name: "no cookies", content: `{"cookies":[],"origins":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "state.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := NewStore(path).Load()
			assert.ErrorIs(t, err, ErrSessionInvalid)
		})
	}
}

func TestStoreSaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	store := NewStore(path)

	require.NoError(t, store.Save(sampleState()))

	next := sampleState()
	next.Cookies[0].Value = "rotated"
	require.NoError(t, store.Save(next))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "rotated", got.Cookies[0].Value)
	assert.Equal(t, "t1", got.Origins[0].LocalStorage[0].Value)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestLooksLoggedIn(t *testing.T) {
	h := DefaultHeuristics()
	long := strings.Repeat("lecture content ", 100)

	tests := []struct {
		name string
		snap Snapshot
		want bool
	}{
		{name: "login url", snap: Snapshot{URL: "https://cokac.com/login?next=/", Text: long, HasAffordance: true}, want: false},
		{name: "auth url", snap: Snapshot{URL: "https://accounts.example.com/AUTH/callback", Text: long}, want: false},
		{name: "sign in phrase", snap: Snapshot{URL: "https://cokac.com/", Text: "Welcome. Sign in to continue", HasAffordance: true}, want: false},
		{name: "korean sign in phrase", snap: Snapshot{URL: "https://cokac.com/", Text: "구글로 계속하기"}, want: false},
		{name: "affordance on short page", snap: Snapshot{URL: "https://cokac.com/", Text: "hi", HasAffordance: true}, want: true},
		{name: "long page without affordance", snap: Snapshot{URL: "https://cokac.com/", Text: long}, want: true},
		{name: "short page without affordance", snap: Snapshot{URL: "https://cokac.com/", Text: "hi"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, h.LooksLoggedIn(tt.snap))
		})
	}
}

func TestSeedStorageScript(t *testing.T) {
	script, err := seedStorageScript(nil)
	require.NoError(t, err)
	assert.Empty(t, script)

	script, err = seedStorageScript(sampleState().Origins)
	require.NoError(t, err)
	assert.Contains(t, script, `"https://cokac.com"`)
	assert.Contains(t, script, "localStorage.setItem")
}

type fakeAck struct {
	retry     bool
	awaited   int
	asked     int
	awaitErr  error
	onAwait   func()
	onConfirm func()
}

func (a *fakeAck) AwaitLogin(ctx context.Context, loginURL string) error {
	a.awaited++
	if a.onAwait != nil {
		a.onAwait()
	}
	return a.awaitErr
}

func (a *fakeAck) ConfirmRetry(ctx context.Context) (bool, error) {
	a.asked++
	if a.onConfirm != nil {
		a.onConfirm()
	}
	return a.retry, nil
}

type fakeWindow struct {
	*browsertest.Page
	state *State
}

func (w fakeWindow) Capture(ctx context.Context) (*State, error) {
	return w.state, nil
}

func loginFixture(t *testing.T, text *string) (*LoginFlow, fakeWindow, *fakeAck) {
	t.Helper()
	cfg := config.Defaults()
	cfg.SettleWait = time.Millisecond
	cfg.LoginExtendedWait = 30 * time.Second

	page := browsertest.New()
	page.OnFunc("innerText", func(string) (string, error) { return *text, nil })
	page.On("const sels", "false")

	ack := &fakeAck{}
	store := NewStore(filepath.Join(t.TempDir(), "state.json"))
	flow := NewLoginFlow(&cfg, store, ack)
	return flow, fakeWindow{Page: page, state: sampleState()}, ack
}

func TestLoginFlowSavesSession(t *testing.T) {
	text := strings.Repeat("dashboard ", 200)
	flow, win, ack := loginFixture(t, &text)

	st, err := flow.run(context.Background(), win)
	require.NoError(t, err)
	assert.Equal(t, 1, ack.awaited)
	assert.Equal(t, 0, ack.asked)
	assert.Equal(t, []string{flow.cfg.LoginURL}, win.Navigated)

	saved, err := flow.store.Load()
	require.NoError(t, err)
	assert.Equal(t, st.Cookies, saved.Cookies)
}

func TestLoginFlowExtendedWait(t *testing.T) {
	text := "Login"
	flow, win, ack := loginFixture(t, &text)
	ack.retry = true
	ack.onConfirm = func() { text = strings.Repeat("dashboard ", 200) }

	_, err := flow.run(context.Background(), win)
	require.NoError(t, err)
	assert.Equal(t, 1, ack.asked)
	assert.Contains(t, win.Slept, 30*time.Second)
}

func TestLoginFlowFailures(t *testing.T) {
	t.Run("declined retry", func(t *testing.T) {
		text := "Login"
		flow, win, _ := loginFixture(t, &text)

		_, err := flow.run(context.Background(), win)
		assert.ErrorIs(t, err, ErrLoginAborted)
	})

	t.Run("still logged out after extended wait", func(t *testing.T) {
		text := "Login"
		flow, win, ack := loginFixture(t, &text)
		ack.retry = true

		_, err := flow.run(context.Background(), win)
		assert.ErrorIs(t, err, ErrLoginUnconfirmed)

		_, loadErr := flow.store.Load()
		assert.ErrorIs(t, loadErr, ErrSessionMissing, "nothing is saved on failure")
	})

	t.Run("acknowledgment cancelled", func(t *testing.T) {
		text := ""
		flow, win, ack := loginFixture(t, &text)
		ack.awaitErr = context.Canceled

		_, err := flow.run(context.Background(), win)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}
