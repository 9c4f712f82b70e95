package instagram

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Cookie is one persisted cookie of an authenticated session.
type Cookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Session is the reusable state of a successful login.
type Session struct {
	Username  string    `json:"username"`
	Cookies   []Cookie  `json:"cookies"`
	CreatedAt time.Time `json:"created_at"`
}

// Valid reports whether the session carries a session id cookie.
func (s *Session) Valid() bool {
	if s == nil {
		return false
	}
	for _, c := range s.Cookies {
		if c.Name == "sessionid" && c.Value != "" {
			return true
		}
	}
	return false
}

// Encode returns the session as base64 JSON, suitable for an env variable.
func (s *Session) Encode() (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// DecodeSession parses the output of Encode.
func DecodeSession(data string) (*Session, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(data))
	if err != nil {
		return nil, fmt.Errorf("decode session data: %w", err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse session data: %w", err)
	}
	return &s, nil
}

// ReadSessionFile loads a session saved by WriteSessionFile.
func ReadSessionFile(path string) (*Session, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse session file: %w", err)
	}
	return &s, nil
}

// WriteSessionFile stores s atomically with owner-only permissions.
func WriteSessionFile(path string, s *Session) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// WriteNetscapeCookies writes the session cookies in the format yt-dlp reads with --cookies.
func WriteNetscapeCookies(path string, s *Session) error {
	var b strings.Builder
	b.WriteString("# Netscape HTTP Cookie File\n")
	if s != nil {
		for _, c := range s.Cookies {
			fmt.Fprintf(&b, ".instagram.com\tTRUE\t/\tTRUE\t0\t%s\t%s\n", c.Name, c.Value)
		}
	}
	return os.WriteFile(path, []byte(b.String()), 0o600)
}
