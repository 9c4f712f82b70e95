// Package acquire downloads the video behind a post link into a per-request
// work area, re-authenticating once when Instagram asks for a login.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/you/reelscribe/internal/domain"
	"github.com/you/reelscribe/internal/instagram"
	"github.com/you/reelscribe/internal/link"
	"github.com/you/reelscribe/internal/logx"
	"github.com/you/reelscribe/internal/metrics"
)

// ErrNoCredentials is returned by re-authentication when no login is configured.
var ErrNoCredentials = errors.New("no instagram credentials configured")

// Fetcher downloads the video of a post into dir and returns its path.
type Fetcher interface {
	Fetch(ctx context.Context, postURL, dir string) (string, error)
}

// ClientFactory builds a fresh Fetcher for a session (nil means anonymous).
type ClientFactory func(sess *instagram.Session) (Fetcher, error)

// Authenticator performs a full login.
type Authenticator interface {
	Login(ctx context.Context) (*instagram.Session, error)
}

// PasswordAuth logs in with a fixed username and password.
type PasswordAuth struct {
	Username string
	Password string
	Client   instagram.Config
}

func (a PasswordAuth) Login(ctx context.Context) (*instagram.Session, error) {
	if a.Username == "" || a.Password == "" {
		return nil, ErrNoCredentials
	}
	c, err := instagram.NewClient(a.Client, nil)
	if err != nil {
		return nil, err
	}
	return c.Login(ctx, a.Username, a.Password)
}

// NativeFactory returns a ClientFactory for the Instagram web API client.
func NativeFactory(cfg instagram.Config) ClientFactory {
	return func(sess *instagram.Session) (Fetcher, error) {
		c, err := instagram.NewClient(cfg, sess)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// Options for creating a Service.
type Options struct {
	TempDir string
	Factory ClientFactory
	Auth    Authenticator // nil disables re-authentication
	Cache   *SessionCache
}

// Service implements video acquisition.
type Service struct {
	tempDir string
	factory ClientFactory
	auth    Authenticator
	cache   *SessionCache

	mu     sync.Mutex
	client Fetcher
}

// New creates a Service with a client built from the cached session.
func New(opts Options) (*Service, error) {
	if opts.Factory == nil {
		return nil, errors.New("acquire: client factory is required")
	}
	if opts.Cache == nil {
		opts.Cache = NewSessionCache("", "")
	}
	client, err := opts.Factory(opts.Cache.Get())
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return &Service{
		tempDir: opts.TempDir,
		factory: opts.Factory,
		auth:    opts.Auth,
		cache:   opts.Cache,
		client:  client,
	}, nil
}

func (s *Service) current() Fetcher {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

// Acquire downloads the video of postURL. On success the caller owns
// video.Area and must remove it; on failure nothing is left on disk.
func (s *Service) Acquire(ctx context.Context, postURL string) (*domain.Video, error) {
	if !link.IsPostURL(postURL) {
		return nil, domain.NewAcquisitionError(domain.ReasonInvalidURL, "validate url", domain.ErrInvalidInput)
	}
	code, ok := link.Shortcode(postURL)
	if !ok {
		return nil, domain.NewAcquisitionError(domain.ReasonInvalidURL, "extract shortcode", domain.ErrInvalidInput)
	}

	area, err := domain.NewWorkArea(s.tempDir, code)
	if err != nil {
		return nil, domain.NewAcquisitionError(domain.ReasonUnknown, "create work area", err)
	}

	path, err := s.fetch(ctx, postURL, area.Dir())
	if err != nil {
		if rerr := area.Remove(); rerr != nil {
			l := logx.FromCtx(ctx)
			l.Warn().Err(rerr).Str("dir", area.Dir()).Msg("work area cleanup failed")
		}
		return nil, err
	}
	return &domain.Video{Path: path, Area: area}, nil
}

func (s *Service) fetch(ctx context.Context, postURL, dir string) (string, error) {
	l := logx.FromCtx(ctx)

	path, err := s.current().Fetch(ctx, postURL, dir)
	if err == nil {
		return path, nil
	}
	if !isAuthFailure(err) {
		return "", classify("fetch", err)
	}

	l.Warn().Err(err).Msg("instagram asked for a login; re-authenticating")
	fresh, lerr := s.reauthenticate(ctx)
	if lerr != nil {
		metrics.ReauthTotal.WithLabelValues("failed").Inc()
		return "", domain.NewAcquisitionError(domain.ReasonLoginRequired, "re-authenticate",
			fmt.Errorf("%w (login: %w)", err, lerr))
	}
	metrics.ReauthTotal.WithLabelValues("ok").Inc()

	path, err = fresh.Fetch(ctx, postURL, dir)
	if err != nil {
		return "", classify("fetch after login", err)
	}
	return path, nil
}

// reauthenticate drops the cached session, logs in from scratch and swaps in
// a client built from the new session. Without credentials the cached session
// is kept, since nothing could replace it.
func (s *Service) reauthenticate(ctx context.Context) (Fetcher, error) {
	if s.auth == nil {
		return nil, ErrNoCredentials
	}
	s.cache.Discard()

	start := time.Now()
	sess, err := s.auth.Login(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Store(sess)

	fresh, err := s.factory(sess)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	s.mu.Lock()
	s.client = fresh
	s.mu.Unlock()

	l := logx.FromCtx(ctx)
	l.Info().Dur("took", time.Since(start)).Str("username", sess.Username).Msg("instagram login refreshed")
	return fresh, nil
}

func isAuthFailure(err error) bool {
	return errors.Is(err, instagram.ErrLoginRequired) || domain.IsAuthFailure(err)
}

// classify converts a fetch error into a typed AcquisitionError.
func classify(op string, err error) error {
	var ae *domain.AcquisitionError
	if errors.As(err, &ae) {
		return err
	}

	var reason domain.Reason
	switch {
	case errors.Is(err, instagram.ErrPrivate):
		reason = domain.ReasonPrivate
	case errors.Is(err, instagram.ErrLoginRequired),
		errors.Is(err, instagram.ErrCheckpoint),
		errors.Is(err, instagram.ErrTwoFactorRequired),
		errors.Is(err, instagram.ErrBadCredentials),
		errors.Is(err, ErrNoCredentials):
		reason = domain.ReasonLoginRequired
	case errors.Is(err, instagram.ErrRateLimited):
		reason = domain.ReasonRateLimited
	case errors.Is(err, instagram.ErrNotFound), errors.Is(err, domain.ErrNoVideo):
		reason = domain.ReasonNotFound
	default:
		reason = domain.ClassifyMessage(err.Error())
	}
	return domain.NewAcquisitionError(reason, op, err)
}
