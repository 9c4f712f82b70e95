// Package pipeline drives one user request from download to the final chat
// reply, keeping a single status message up to date along the way.
package pipeline

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/you/reelscribe/internal/domain"
	"github.com/you/reelscribe/internal/gemini"
	"github.com/you/reelscribe/internal/logx"
	"github.com/you/reelscribe/internal/metrics"
)

// Acquirer downloads the video behind a post link.
type Acquirer interface {
	Acquire(ctx context.Context, postURL string) (*domain.Video, error)
}

// AI is the generative model client.
type AI interface {
	Transcribe(ctx context.Context, videoPath string) (string, error)
	Translate(ctx context.Context, text, language string) (string, error)
	Summarize(ctx context.Context, text string, style gemini.Style) (string, error)
	GenerateImage(ctx context.Context, base []byte, prompt, aspectRatio string) ([]byte, error)
}

// Chat delivers replies to the user.
type Chat interface {
	Send(ctx context.Context, chatID int64, text string) (int, error)
	Edit(ctx context.Context, chatID int64, messageID int, text string) error
	SendPhoto(ctx context.Context, chatID int64, image []byte, caption string) error
}

// reportTimeout bounds the final error edit, which outlives the task context.
const reportTimeout = 15 * time.Second

// Orchestrator runs requests. It is safe for concurrent use as long as its
// collaborators are.
type Orchestrator struct {
	acq       Acquirer
	ai        AI
	chat      Chat
	baseImage []byte
}

// New creates an Orchestrator. baseImage may be nil, in which case thumbnail
// requests fail with ErrNoBaseImage.
func New(acq Acquirer, ai AI, chat Chat, baseImage []byte) *Orchestrator {
	return &Orchestrator{acq: acq, ai: ai, chat: chat, baseImage: baseImage}
}

// run is the state of one request.
type run struct {
	req     domain.Request
	stage   domain.Stage
	outcome string
}

// Handle runs req to a terminal state. Every failure has already been
// reported to the user when Handle returns it.
func (o *Orchestrator) Handle(ctx context.Context, req domain.Request) error {
	ctx = logx.WithRequest(ctx, req.ID, req.UserID)
	l := logx.FromCtx(ctx)
	r := &run{req: req, stage: domain.StageReceived}
	start := time.Now()

	metrics.ActiveRequests.Inc()
	defer metrics.ActiveRequests.Dec()

	var video *domain.Video
	defer func() {
		if video == nil {
			return
		}
		if err := video.Area.Remove(); err != nil {
			l.Warn().Err(err).Str("dir", video.Area.Dir()).Msg("work area cleanup failed")
		}
	}()

	l.Info().Str("action", string(req.Action)).Str("url", req.URL).Msg("request started")

	err := o.process(ctx, r, &video)
	if err != nil {
		failedAt := r.stage
		r.stage = domain.StageErrored
		metrics.RequestsTotal.WithLabelValues(string(req.Action), outcome(err)).Inc()
		l.Error().Err(err).
			Str("stage", string(failedAt)).
			Str("reason", string(domain.Classify(err))).
			Dur("took", time.Since(start)).
			Msg("request failed")

		// the task context may already be cancelled or past its deadline
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reportTimeout)
		defer cancel()
		if serr := o.setStatus(rctx, r, UserMessage(err)); serr != nil {
			l.Error().Err(serr).Msg("could not report failure to user")
		}
		return err
	}

	r.stage = domain.StageReplied
	if r.outcome == "" {
		r.outcome = outcome(nil)
	}
	metrics.RequestsTotal.WithLabelValues(string(req.Action), r.outcome).Inc()
	l.Info().Str("outcome", r.outcome).Dur("took", time.Since(start)).Msg("request replied")
	return nil
}

func (o *Orchestrator) process(ctx context.Context, r *run, video **domain.Video) error {
	switch r.req.Action {
	case domain.ActionTranscript, domain.ActionThumbnail:
	default:
		return fmt.Errorf("%w: unknown action %q", domain.ErrInvalidInput, r.req.Action)
	}

	o.enter(ctx, r, domain.StageDownloading, StatusDownloading)
	start := time.Now()
	v, err := o.acq.Acquire(ctx, r.req.URL)
	observe("download", start)
	if err != nil {
		return err
	}
	*video = v

	if r.req.Action == domain.ActionThumbnail {
		return o.thumbnail(ctx, r, v)
	}
	return o.transcript(ctx, r, v)
}

func (o *Orchestrator) transcript(ctx context.Context, r *run, v *domain.Video) error {
	o.enter(ctx, r, domain.StageTranscriptProcessing, StatusTranscript)

	res, err := o.transcribeAndTranslate(ctx, v.Path)
	if err != nil {
		return err
	}
	if !res.HasSpeech() {
		r.outcome = "no_speech"
		return o.setStatus(ctx, r, StatusNoSpeech)
	}

	combined := FormatTranscript(res)
	if utf8.RuneCountInString(combined) <= MaxMessageRunes {
		return o.setStatus(ctx, r, combined)
	}

	if err := o.setStatus(ctx, r, StatusDone); err != nil {
		return err
	}
	for _, section := range Sections(res) {
		for _, chunk := range SplitRunes(section, MaxMessageRunes) {
			if _, err := o.chat.Send(ctx, r.req.ChatID, chunk); err != nil {
				return err
			}
		}
	}
	return nil
}

// transcribeAndTranslate returns the transcript with both translations.
// Without speech no translation is requested.
func (o *Orchestrator) transcribeAndTranslate(ctx context.Context, path string) (domain.TranscriptResult, error) {
	original, err := o.transcribe(ctx, path)
	if err != nil {
		return domain.TranscriptResult{}, err
	}
	if original == domain.NoSpeech {
		return domain.NoSpeechTranscript(), nil
	}

	res := domain.TranscriptResult{Original: original}
	start := time.Now()
	if res.Turkish, err = o.ai.Translate(ctx, original, domain.LanguageTurkish); err != nil {
		return domain.TranscriptResult{}, fmt.Errorf("translate: %w", err)
	}
	if res.English, err = o.ai.Translate(ctx, original, domain.LanguageEnglish); err != nil {
		return domain.TranscriptResult{}, fmt.Errorf("translate: %w", err)
	}
	observe("translate", start)
	return res, nil
}

func (o *Orchestrator) transcribe(ctx context.Context, path string) (string, error) {
	start := time.Now()
	text, err := o.ai.Transcribe(ctx, path)
	observe("transcribe", start)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	return text, nil
}

func (o *Orchestrator) thumbnail(ctx context.Context, r *run, v *domain.Video) error {
	o.enter(ctx, r, domain.StageThumbnailProcessing, StatusThumbnail)
	if len(o.baseImage) == 0 {
		return ErrNoBaseImage
	}

	original, err := o.transcribe(ctx, v.Path)
	if err != nil {
		return err
	}

	hook, topic := domain.DefaultHook, domain.DefaultTopic
	if original != domain.NoSpeech {
		start := time.Now()
		if hook, err = o.ai.Summarize(ctx, original, gemini.StyleHook); err != nil {
			return fmt.Errorf("hook: %w", err)
		}
		if topic, err = o.ai.Summarize(ctx, original, gemini.StyleTopic); err != nil {
			return fmt.Errorf("topic: %w", err)
		}
		observe("summarize", start)
	} else {
		r.outcome = "no_speech"
	}

	start := time.Now()
	img, err := o.ai.GenerateImage(ctx, o.baseImage, gemini.ThumbnailPrompt(hook, topic), domain.ThumbnailAspectRatio)
	observe("image", start)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrImageGenerationFailed, err)
	}
	if len(img) == 0 {
		return fmt.Errorf("%w: no image in response", domain.ErrImageGenerationFailed)
	}
	return o.deliverThumbnail(ctx, r, domain.ThumbnailResult{Image: img, Hook: hook, Topic: topic})
}

func (o *Orchestrator) deliverThumbnail(ctx context.Context, r *run, res domain.ThumbnailResult) error {
	if err := o.chat.SendPhoto(ctx, r.req.ChatID, res.Image, Caption(res.Hook)); err != nil {
		return err
	}
	l := logx.FromCtx(ctx)
	l.Debug().Str("hook", res.Hook).Str("topic", res.Topic).Int("bytes", len(res.Image)).Msg("thumbnail sent")
	return o.setStatus(ctx, r, StatusThumbnailReady)
}

// enter moves to stage and shows its status text. A failed status edit does
// not stop the pipeline.
func (o *Orchestrator) enter(ctx context.Context, r *run, stage domain.Stage, text string) {
	r.stage = stage
	if err := o.setStatus(ctx, r, text); err != nil {
		l := logx.FromCtx(ctx)
		l.Warn().Err(err).Str("stage", string(stage)).Msg("status update failed")
	}
}

// setStatus edits the request's status message, creating it when the
// request arrived without one.
func (o *Orchestrator) setStatus(ctx context.Context, r *run, text string) error {
	if r.req.StatusMessageID == 0 {
		id, err := o.chat.Send(ctx, r.req.ChatID, text)
		if err != nil {
			return err
		}
		r.req.StatusMessageID = id
		return nil
	}
	return o.chat.Edit(ctx, r.req.ChatID, r.req.StatusMessageID, text)
}

func observe(stage string, start time.Time) {
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
