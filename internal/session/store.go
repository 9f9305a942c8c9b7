package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	// ErrSessionMissing means no session file exists; run the login flow.
	ErrSessionMissing = errors.New("session file not found")
	// ErrSessionInvalid means the session file or the session it holds is unusable; run the login flow.
	ErrSessionInvalid = errors.New("session is invalid or expired")
)

// State is a serialized browsing context: the cookie jar plus local storage
// snapshots per origin.
type State struct {
	Cookies []Cookie      `json:"cookies"`
	Origins []OriginState `json:"origins"`
}

type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"` // unix seconds, -1 for session cookies
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

type OriginState struct {
	Origin       string         `json:"origin"`
	LocalStorage []StorageEntry `json:"localStorage"`
}

type StorageEntry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Store reads and writes the session file wholesale.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// Load reads the session file. It returns ErrSessionMissing when the file does
// not exist and ErrSessionInvalid when it is corrupt or holds no cookies.
func (s *Store) Load() (*State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSessionMissing, s.path)
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("%w: corrupt session file %s: %v", ErrSessionInvalid, s.path, err)
	}
	if len(st.Cookies) == 0 {
		return nil, fmt.Errorf("%w: session file %s has no cookies", ErrSessionInvalid, s.path)
	}
	return &st, nil
}

// Save overwrites the session file atomically via a temp file and rename.
func (s *Store) Save(st *State) (err error) {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "session-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to persist session state: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to persist session state: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to persist session state: %w", err)
	}
	if err = os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to persist session state: %w", err)
	}
	return nil
}
