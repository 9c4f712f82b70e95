package domain

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyMessage(t *testing.T) {
	tests := []struct {
		msg  string
		want Reason
	}{
		{"Profile is private", ReasonPrivate},
		{"PRIVATE account", ReasonPrivate},
		{"private and not found", ReasonPrivate},
		{"Login required to view this post", ReasonLoginRequired},
		{"HTTP Error 401: Unauthorized", ReasonLoginRequired},
		{"checkpoint_required", ReasonLoginRequired},
		{"HTTP Error 429: Too Many Requests", ReasonRateLimited},
		{"rate-limit reached", ReasonRateLimited},
		{"This content is not available", ReasonUnavailable},
		{"Video unavailable", ReasonUnavailable},
		{"Media not found", ReasonNotFound},
		{"connection reset by peer", ReasonUnknown},
		{"", ReasonUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyMessage(tt.msg))
		})
	}
}

func TestClassifyPrefersTypedReason(t *testing.T) {
	err := fmt.Errorf("acquire: %w", NewAcquisitionError(ReasonNotFound, "fetch", errors.New("private post")))
	assert.Equal(t, ReasonNotFound, Classify(err))
}

func TestClassifyFallsBackToText(t *testing.T) {
	assert.Equal(t, ReasonPrivate, Classify(errors.New("this account is private; media not found")))
	assert.Equal(t, Reason(""), Classify(nil))
}

func TestIsAuthFailure(t *testing.T) {
	assert.True(t, IsAuthFailure(NewAcquisitionError(ReasonLoginRequired, "fetch", nil)))
	assert.True(t, IsAuthFailure(errors.New("login_required")))
	assert.False(t, IsAuthFailure(NewAcquisitionError(ReasonRateLimited, "fetch", nil)))
}

func TestAcquisitionErrorMessageAndUnwrap(t *testing.T) {
	cause := errors.New("status 404")
	err := NewAcquisitionError(ReasonNotFound, "media info", cause)
	assert.Equal(t, "media info [not_found: status 404]", err.Error())
	assert.ErrorIs(t, err, cause)

	bare := &AcquisitionError{Reason: ReasonPrivate}
	assert.Equal(t, "private", bare.Error())
}

func TestTransportErrorUnwrap(t *testing.T) {
	cause := errors.New("bad gateway")
	err := &TransportError{Op: "edit", Err: cause}
	assert.Equal(t, "transport edit: bad gateway", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction("transcript")
	require.NoError(t, err)
	assert.Equal(t, ActionTranscript, a)

	a, err = ParseAction(" Thumbnail ")
	require.NoError(t, err)
	assert.Equal(t, ActionThumbnail, a)

	_, err = ParseAction("zip")
	assert.Error(t, err)
}

func TestStageTerminal(t *testing.T) {
	assert.True(t, StageReplied.Terminal())
	assert.True(t, StageErrored.Terminal())
	assert.False(t, StageDownloading.Terminal())
}

func TestNoSpeechTranscript(t *testing.T) {
	r := NoSpeechTranscript()
	assert.False(t, r.HasSpeech())
	assert.Equal(t, NoSpeech, r.Turkish)
	assert.Equal(t, NoSpeech, r.English)
	assert.True(t, TranscriptResult{Original: "hello"}.HasSpeech())
}

func TestWorkAreaRemovesEverythingOnce(t *testing.T) {
	root := t.TempDir()
	area, err := NewWorkArea(root, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, root, filepath.Dir(area.Dir()))

	require.NoError(t, os.WriteFile(filepath.Join(area.Dir(), "ABC123.mp4"), []byte("video"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(area.Dir(), "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(area.Dir(), "nested", "x.jpg"), []byte("x"), 0o644))

	require.NoError(t, area.Remove())
	_, err = os.Stat(area.Dir())
	assert.True(t, os.IsNotExist(err))

	// second call is a no-op
	require.NoError(t, area.Remove())

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWorkAreaRemoveToleratesMissingDir(t *testing.T) {
	area, err := NewWorkArea(t.TempDir(), "gone")
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(area.Dir()))
	assert.NoError(t, area.Remove())
}
