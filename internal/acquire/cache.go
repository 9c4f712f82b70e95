package acquire

import (
	"errors"
	"os"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/you/reelscribe/internal/instagram"
)

// SessionCache keeps the current Instagram session in memory and mirrors it
// to a file. The file is only a cache: read and write failures are logged.
type SessionCache struct {
	path string

	mu   sync.Mutex
	sess *instagram.Session
}

// NewSessionCache seeds the cache from seed (base64 session data) when it
// decodes, otherwise from the session file when it exists and parses.
func NewSessionCache(path, seed string) *SessionCache {
	c := &SessionCache{path: path}

	if seed != "" {
		s, err := instagram.DecodeSession(seed)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("ignoring invalid session seed")
		case !s.Valid():
			log.Warn().Msg("ignoring session seed without a session id")
		default:
			c.sess = s
			return c
		}
	}

	if path == "" {
		return c
	}
	s, err := instagram.ReadSessionFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		log.Warn().Err(err).Str("path", path).Msg("ignoring unreadable session file")
	case !s.Valid():
		log.Warn().Str("path", path).Msg("ignoring session file without a session id")
	default:
		log.Info().Str("path", path).Str("username", s.Username).Msg("loaded instagram session")
		c.sess = s
	}
	return c
}

// Get returns the cached session or nil.
func (c *SessionCache) Get() *instagram.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess
}

// Store replaces the cached session and saves it to the file.
func (c *SessionCache) Store(s *instagram.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sess = s
	if c.path == "" {
		return
	}
	if err := instagram.WriteSessionFile(c.path, s); err != nil {
		log.Warn().Err(err).Str("path", c.path).Msg("could not save instagram session")
	}
}

// Discard forgets the session in memory and on disk.
func (c *SessionCache) Discard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sess = nil
	if c.path == "" {
		return
	}
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("path", c.path).Msg("could not remove instagram session file")
	}
}
