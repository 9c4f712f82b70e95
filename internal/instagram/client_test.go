package instagram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/reelscribe/internal/domain"
)

func testClient(t *testing.T, srv *httptest.Server, sess *Session) *Client {
	t.Helper()
	c, err := NewClient(Config{BaseURL: srv.URL, UserAgent: "test-agent", Timeout: 5 * time.Second}, sess)
	require.NoError(t, err)
	return c
}

func TestMediaID(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"A", "0"},
		{"B", "1"},
		{"BA", "64"},
		{"_", "63"},
		{"-_", "4031"},
		{"BAAAAAAAAAAextra", "1152921504606846976"}, // 64^10, suffix ignored
	}
	for _, tt := range tests {
		got, err := MediaID(tt.code)
		require.NoError(t, err, tt.code)
		assert.Equal(t, tt.want, got, tt.code)
	}

	_, err := MediaID("")
	assert.Error(t, err)
	_, err = MediaID("ab!c")
	assert.Error(t, err)
}

func TestFetchDownloadsVideo(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/v1/media/64/info/":
			assert.Equal(t, webAppID, r.Header.Get("X-IG-App-ID"))
			assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok","items":[{"code":"BA","video_versions":[
				{"url":"` + srv.URL + `/v/small.mp4","width":320},
				{"url":"` + srv.URL + `/v/big.mp4","width":1080}]}]}`))
		case r.URL.Path == "/v/big.mp4":
			_, _ = w.Write([]byte("big video bytes"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	path, err := testClient(t, srv, nil).Fetch(context.Background(), "https://www.instagram.com/reel/BA/", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "BA.mp4"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "big video bytes", string(data))
}

func TestFetchCarouselAndNoVideo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","items":[{"code":"B","media_type":1}]}`))
	}))
	defer srv.Close()

	_, err := testClient(t, srv, nil).Fetch(context.Background(), "https://instagram.com/p/B/", t.TempDir())
	assert.ErrorIs(t, err, domain.ErrNoVideo)

	m := Media{CarouselMedia: []Media{{}, {VideoVersions: []VideoVersion{{URL: "u2", Width: 10}}}}}
	u, ok := m.VideoURL()
	assert.True(t, ok)
	assert.Equal(t, "u2", u)
}

func TestMediaInfoErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		ctype  string
		body   string
		want   error
	}{
		{"401", http.StatusUnauthorized, "application/json", `{}`, ErrLoginRequired},
		{"require_login flag", http.StatusBadRequest, "application/json", `{"message":"login_required","require_login":true,"status":"fail"}`, ErrLoginRequired},
		{"html login page", http.StatusOK, "text/html; charset=utf-8", `<html></html>`, ErrLoginRequired},
		{"checkpoint", http.StatusBadRequest, "application/json", `{"message":"checkpoint_required","status":"fail"}`, ErrCheckpoint},
		{"rate limit", http.StatusTooManyRequests, "application/json", `{}`, ErrRateLimited},
		{"private", http.StatusBadRequest, "application/json", `{"message":"Not authorized to view user","status":"fail"}`, ErrPrivate},
		{"404", http.StatusNotFound, "application/json", `{}`, ErrNotFound},
		{"media not found message", http.StatusBadRequest, "application/json", `{"message":"Media not found or unavailable","status":"fail"}`, ErrNotFound},
		{"ok but fail status", http.StatusOK, "application/json", `{"message":"login_required","status":"fail"}`, ErrLoginRequired},
		{"empty items", http.StatusOK, "application/json", `{"status":"ok","items":[]}`, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.ctype)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := testClient(t, srv, nil).MediaInfo(context.Background(), "BA")
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestMediaInfoUnknownError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"oops"}`))
	}))
	defer srv.Close()

	_, err := testClient(t, srv, nil).MediaInfo(context.Background(), "BA")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.Contains(t, err.Error(), "oops")
}

func TestDownloadStatusMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/forbidden":
			w.WriteHeader(http.StatusForbidden)
		case "/gone":
			w.WriteHeader(http.StatusNotFound)
		case "/slow":
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	c := testClient(t, srv, nil)
	dst := filepath.Join(t.TempDir(), "v.mp4")
	assert.ErrorIs(t, c.Download(context.Background(), srv.URL+"/forbidden", dst), ErrLoginRequired)
	assert.ErrorIs(t, c.Download(context.Background(), srv.URL+"/gone", dst), ErrNotFound)
	assert.ErrorIs(t, c.Download(context.Background(), srv.URL+"/slow", dst), ErrRateLimited)
	assert.Error(t, c.Download(context.Background(), srv.URL+"/other", dst))

	_, err := os.Stat(dst)
	assert.True(t, os.IsNotExist(err), "no file on failure")
}

func TestSessionCookiesAreSent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ck, err := r.Cookie("sessionid")
		if err != nil || ck.Value != "sid-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "tok", r.Header.Get("X-CSRFToken"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","items":[{"code":"BA"}]}`))
	}))
	defer srv.Close()

	sess := &Session{Username: "alice", Cookies: []Cookie{{Name: "sessionid", Value: "sid-1"}, {Name: "csrftoken", Value: "tok"}}}
	m, err := testClient(t, srv, sess).MediaInfo(context.Background(), "BA")
	require.NoError(t, err)
	assert.Equal(t, "BA", m.Code)

	_, err = testClient(t, srv, nil).MediaInfo(context.Background(), "BA")
	assert.ErrorIs(t, err, ErrLoginRequired)
}

func loginServer(t *testing.T, answer string, status int, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/accounts/login/":
			http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "csrf-1", Path: "/"})
			w.WriteHeader(http.StatusOK)
		case "/api/v1/web/accounts/login/ajax/":
			atomic.AddInt32(calls, 1)
			assert.Equal(t, "csrf-1", r.Header.Get("X-CSRFToken"))
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "alice", r.PostForm.Get("username"))
			assert.True(t, strings.HasPrefix(r.PostForm.Get("enc_password"), "#PWD_INSTAGRAM_BROWSER:0:"))
			assert.True(t, strings.HasSuffix(r.PostForm.Get("enc_password"), ":secret"))
			if status == http.StatusOK && strings.Contains(answer, `"authenticated":true`) {
				http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: "sid-new", Path: "/"})
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(answer))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestLoginSuccess(t *testing.T) {
	var calls int32
	srv := loginServer(t, `{"authenticated":true,"user":true,"status":"ok"}`, http.StatusOK, &calls)
	defer srv.Close()

	sess, err := testClient(t, srv, nil).Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls)
	assert.Equal(t, "alice", sess.Username)
	assert.True(t, sess.Valid())
}

func TestLoginFailures(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		status int
		want   error
	}{
		{"bad password", `{"authenticated":false,"user":true,"status":"ok"}`, http.StatusOK, ErrBadCredentials},
		{"two factor", `{"two_factor_required":true,"status":"fail"}`, http.StatusBadRequest, ErrTwoFactorRequired},
		{"checkpoint", `{"message":"checkpoint_required","checkpoint_url":"/challenge/","status":"fail"}`, http.StatusBadRequest, ErrCheckpoint},
		{"rate limited", `{"message":"Please wait a few minutes","status":"fail"}`, http.StatusTooManyRequests, ErrRateLimited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := loginServer(t, tt.answer, tt.status, &calls)
			defer srv.Close()

			_, err := testClient(t, srv, nil).Login(context.Background(), "alice", "secret")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoginWithoutCSRF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := testClient(t, srv, nil).Login(context.Background(), "alice", "secret")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "csrf")
}

func TestSessionEncodeDecodeAndFiles(t *testing.T) {
	sess := &Session{Username: "alice", Cookies: []Cookie{{Name: "sessionid", Value: "sid"}}}
	enc, err := sess.Encode()
	require.NoError(t, err)

	got, err := DecodeSession(enc)
	require.NoError(t, err)
	assert.Equal(t, sess.Cookies, got.Cookies)
	assert.True(t, got.Valid())

	_, err = DecodeSession("%%%")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "state", "session.json")
	require.NoError(t, WriteSessionFile(path, sess))
	fromFile, err := ReadSessionFile(path)
	require.NoError(t, err)
	assert.Equal(t, "alice", fromFile.Username)

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err = ReadSessionFile(path)
	assert.Error(t, err)

	assert.False(t, (&Session{}).Valid())
	assert.False(t, (*Session)(nil).Valid())
}

func TestWriteNetscapeCookies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.txt")
	require.NoError(t, WriteNetscapeCookies(path, &Session{Cookies: []Cookie{{Name: "sessionid", Value: "sid"}}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# Netscape HTTP Cookie File\n"))
	assert.Contains(t, string(data), ".instagram.com\tTRUE\t/\tTRUE\t0\tsessionid\tsid\n")
}
