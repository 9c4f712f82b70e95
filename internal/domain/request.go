package domain

import (
	"fmt"
	"strings"
)

// Action is what the user asked to do with a link.
type Action string

const (
	ActionTranscript Action = "transcript"
	ActionThumbnail  Action = "thumbnail"
)

// ParseAction validates a raw action identifier.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionTranscript, ActionThumbnail:
		return a, nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// Request is one user-initiated job. It lives until its final reply is sent.
type Request struct {
	ID              string
	ChatID          int64
	UserID          int64
	StatusMessageID int
	URL             string
	Action          Action
}

// Stage is a step of the request state machine.
type Stage string

const (
	StageReceived             Stage = "received"
	StageDownloading          Stage = "downloading"
	StageTranscriptProcessing Stage = "transcript_processing"
	StageThumbnailProcessing  Stage = "thumbnail_processing"
	StageReplied              Stage = "replied"
	StageErrored              Stage = "errored"
)

// Terminal reports whether no further transition is possible.
func (s Stage) Terminal() bool {
	return s == StageReplied || s == StageErrored
}

// Video is a downloaded media file and the area that owns it.
type Video struct {
	Path string
	Area Area
}
