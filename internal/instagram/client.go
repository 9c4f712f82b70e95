// Package instagram talks to the Instagram web API: post media lookup,
// video download and username/password login.
package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/you/reelscribe/internal/domain"
	"github.com/you/reelscribe/internal/link"
)

// Errors returned by the client. Callers classify with errors.Is.
var (
	ErrLoginRequired     = errors.New("login required")
	ErrPrivate           = errors.New("private profile not followed")
	ErrNotFound          = errors.New("media not found")
	ErrRateLimited       = errors.New("rate limited")
	ErrBadCredentials    = errors.New("bad credentials")
	ErrTwoFactorRequired = errors.New("two-factor authentication required")
	ErrCheckpoint        = errors.New("checkpoint required")
)

const webAppID = "936619743392459"

// Config for creating a new client.
type Config struct {
	BaseURL   string        // defaults to https://www.instagram.com
	UserAgent string
	Timeout   time.Duration // per request, defaults to 2 minutes
}

// Client is one Instagram web session. It is cheap to create; build a new
// one instead of mutating an existing client after a login.
type Client struct {
	cfg  Config
	base *url.URL
	jar  http.CookieJar
	hc   *http.Client
}

// NewClient creates a client whose cookie jar is seeded from sess (may be nil).
func NewClient(cfg Config, sess *Session) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.instagram.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if sess != nil && len(sess.Cookies) > 0 {
		cookies := make([]*http.Cookie, 0, len(sess.Cookies))
		for _, c := range sess.Cookies {
			cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
		}
		jar.SetCookies(base, cookies)
	}
	return &Client{
		cfg:  cfg,
		base: base,
		jar:  jar,
		hc:   &http.Client{Timeout: cfg.Timeout, Jar: jar},
	}, nil
}

// Session exports the cookies currently held by the client.
func (c *Client) Session(username string) *Session {
	s := &Session{Username: username, CreatedAt: time.Now().UTC()}
	for _, ck := range c.jar.Cookies(c.base) {
		s.Cookies = append(s.Cookies, Cookie{Name: ck.Name, Value: ck.Value})
	}
	return s
}

func (c *Client) cookie(name string) string {
	for _, ck := range c.jar.Cookies(c.base) {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	req.Header.Set("X-IG-App-ID", webAppID)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Referer", c.base.String()+"/")
	if tok := c.cookie("csrftoken"); tok != "" {
		req.Header.Set("X-CSRFToken", tok)
	}
	return req, nil
}

// Media is the part of a media info response the downloader needs.
type Media struct {
	Code          string         `json:"code"`
	MediaType     int            `json:"media_type"`
	VideoVersions []VideoVersion `json:"video_versions"`
	CarouselMedia []Media        `json:"carousel_media"`
	User          struct {
		Username  string `json:"username"`
		IsPrivate bool   `json:"is_private"`
	} `json:"user"`
}

// VideoVersion is one encoding of a video.
type VideoVersion struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// VideoURL returns the best video URL of the post, looking into carousels.
func (m *Media) VideoURL() (string, bool) {
	best := ""
	bestWidth := -1
	for _, v := range m.VideoVersions {
		if v.URL != "" && v.Width > bestWidth {
			best, bestWidth = v.URL, v.Width
		}
	}
	if best != "" {
		return best, true
	}
	for i := range m.CarouselMedia {
		if u, ok := m.CarouselMedia[i].VideoURL(); ok {
			return u, true
		}
	}
	return "", false
}

type apiStatus struct {
	Message      string `json:"message"`
	Status       string `json:"status"`
	RequireLogin bool   `json:"require_login"`
}

// statusError maps a non-OK API answer to one of the package errors.
func statusError(code int, body []byte) error {
	var st apiStatus
	_ = json.Unmarshal(body, &st)
	msg := strings.ToLower(st.Message)

	switch {
	case st.RequireLogin || strings.Contains(msg, "login_required") || code == http.StatusUnauthorized:
		return fmt.Errorf("%w (status %d)", ErrLoginRequired, code)
	case strings.Contains(msg, "checkpoint"):
		return fmt.Errorf("%w (status %d)", ErrCheckpoint, code)
	case code == http.StatusTooManyRequests || strings.Contains(msg, "wait a few minutes"):
		return fmt.Errorf("%w (status %d)", ErrRateLimited, code)
	case strings.Contains(msg, "not authorized") || strings.Contains(msg, "private"):
		return fmt.Errorf("%w (status %d)", ErrPrivate, code)
	case code == http.StatusNotFound || strings.Contains(msg, "not found"):
		return fmt.Errorf("%w (status %d)", ErrNotFound, code)
	}
	if st.Message != "" {
		return fmt.Errorf("instagram API error (status %d): %s", code, st.Message)
	}
	return fmt.Errorf("instagram API error (status %d)", code)
}

// MediaInfo looks up a post by shortcode.
func (c *Client) MediaInfo(ctx context.Context, shortcode string) (*Media, error) {
	id, err := MediaID(shortcode)
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/media/"+id+"/info/", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, body)
	}
	// anonymous requests get redirected to the HTML login page
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		return nil, fmt.Errorf("%w (html response)", ErrLoginRequired)
	}

	var out struct {
		Items []Media `json:"items"`
		apiStatus
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if out.Status == "fail" {
		return nil, statusError(resp.StatusCode, body)
	}
	if len(out.Items) == 0 {
		return nil, ErrNotFound
	}
	return &out.Items[0], nil
}

// Download streams videoURL into dst.
func (c *Client) Download(ctx context.Context, videoURL, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, videoURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	req.Header.Set("Accept", "video/mp4,video/*;q=0.9,*/*;q=0.8")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusForbidden, http.StatusUnauthorized:
		return fmt.Errorf("%w (video status %d)", ErrLoginRequired, resp.StatusCode)
	case http.StatusNotFound:
		return fmt.Errorf("%w (video status %d)", ErrNotFound, resp.StatusCode)
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create video file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return fmt.Errorf("write video file: %w", err)
	}
	return f.Close()
}

// Fetch downloads the video of postURL into dir and returns the file path.
func (c *Client) Fetch(ctx context.Context, postURL, dir string) (string, error) {
	code, ok := link.Shortcode(postURL)
	if !ok {
		return "", fmt.Errorf("no shortcode in %q", postURL)
	}
	media, err := c.MediaInfo(ctx, code)
	if err != nil {
		return "", err
	}
	videoURL, ok := media.VideoURL()
	if !ok {
		return "", domain.ErrNoVideo
	}
	dst := filepath.Join(dir, code+".mp4")
	if err := c.Download(ctx, videoURL, dst); err != nil {
		return "", err
	}
	return dst, nil
}

type loginResponse struct {
	Authenticated     bool   `json:"authenticated"`
	User              bool   `json:"user"`
	TwoFactorRequired bool   `json:"two_factor_required"`
	CheckpointURL     string `json:"checkpoint_url"`
	Message           string `json:"message"`
	Status            string `json:"status"`
}

// Login authenticates with username and password and returns the new session.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	// the login page hands out the csrftoken cookie
	req, err := c.newRequest(ctx, http.MethodGet, "/accounts/login/", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch login page: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if c.cookie("csrftoken") == "" {
		return nil, fmt.Errorf("login page did not set a csrf token (status %d)", resp.StatusCode)
	}

	form := url.Values{}
	form.Set("username", username)
	form.Set("enc_password", "#PWD_INSTAGRAM_BROWSER:0:"+strconv.FormatInt(time.Now().Unix(), 10)+":"+password)
	form.Set("queryParams", "{}")
	form.Set("optIntoOneTap", "false")

	req, err = c.newRequest(ctx, http.MethodPost, "/api/v1/web/accounts/login/ajax/", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err = c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send login: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read login response: %w", err)
	}

	var lr loginResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return nil, fmt.Errorf("unmarshal login response (status %d): %w", resp.StatusCode, err)
	}
	switch {
	case lr.Authenticated:
		return c.Session(username), nil
	case lr.TwoFactorRequired:
		return nil, ErrTwoFactorRequired
	case lr.CheckpointURL != "" || strings.Contains(strings.ToLower(lr.Message), "checkpoint"):
		return nil, ErrCheckpoint
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	}
	return nil, fmt.Errorf("%w (user known: %t)", ErrBadCredentials, lr.User)
}
