// Package gemini wraps the Gemini API for transcription, translation,
// summarization and image composition.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/you/reelscribe/internal/domain"
	"github.com/you/reelscribe/internal/logx"
)

// Config for creating a new client.
type Config struct {
	APIKey       string
	BaseURL      string // optional, for tests and proxies
	TextModel    string
	ImageModel   string
	PollInterval time.Duration
	PollTimeout  time.Duration
}

// fileStore is the part of the Files API used for video uploads.
type fileStore interface {
	UploadFromPath(ctx context.Context, path string, config *genai.UploadFileConfig) (*genai.File, error)
	Get(ctx context.Context, name string, config *genai.GetFileConfig) (*genai.File, error)
	Delete(ctx context.Context, name string, config *genai.DeleteFileConfig) (*genai.DeleteFileResponse, error)
}

// Client is a Gemini API client.
type Client struct {
	genai        *genai.Client
	files        fileStore
	textModel    string
	imageModel   string
	pollInterval time.Duration
	pollTimeout  time.Duration
}

// New creates a new client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	if cfg.TextModel == "" {
		cfg.TextModel = "gemini-2.5-flash"
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = "gemini-2.5-flash-image"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 5 * time.Minute
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	gc, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Client{
		genai:        gc,
		files:        gc.Files,
		textModel:    cfg.TextModel,
		imageModel:   cfg.ImageModel,
		pollInterval: cfg.PollInterval,
		pollTimeout:  cfg.PollTimeout,
	}, nil
}

// Transcribe uploads the video, waits until the service has processed it and
// asks for a verbatim transcript. Videos without speech yield domain.NoSpeech.
func (c *Client) Transcribe(ctx context.Context, videoPath string) (string, error) {
	l := logx.FromCtx(ctx)

	uploaded, err := c.files.UploadFromPath(ctx, videoPath, &genai.UploadFileConfig{MIMEType: "video/mp4"})
	if err != nil {
		return "", fmt.Errorf("upload video: %w", err)
	}
	name := uploaded.Name
	defer func() {
		// the service expires files on its own; deleting early is a courtesy
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if _, err := c.files.Delete(dctx, name, nil); err != nil {
			l.Debug().Err(err).Str("file", name).Msg("delete uploaded video failed")
		}
	}()

	start := time.Now()
	file, err := waitActive(ctx, uploaded, func(ctx context.Context, name string) (*genai.File, error) {
		return c.files.Get(ctx, name, nil)
	}, c.pollInterval, c.pollTimeout)
	if err != nil {
		return "", err
	}
	l.Debug().Dur("took", time.Since(start)).Str("file", name).Msg("video processed")

	parts := []*genai.Part{
		genai.NewPartFromURI(file.URI, file.MIMEType),
		genai.NewPartFromText(transcribePrompt),
	}
	resp, err := c.genai.Models.GenerateContent(ctx, c.textModel,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, nil)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	return NormalizeTranscript(resp.Text()), nil
}

type getFileFunc func(ctx context.Context, name string) (*genai.File, error)

// waitActive polls until the file leaves the processing state or timeout passes.
func waitActive(ctx context.Context, f *genai.File, get getFileFunc, interval, timeout time.Duration) (*genai.File, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		switch f.State {
		case genai.FileStateFailed:
			msg := "file state FAILED"
			if f.Error != nil && f.Error.Message != "" {
				msg = f.Error.Message
			}
			return nil, fmt.Errorf("%w: %s", domain.ErrTranscriptionFailed, msg)
		case genai.FileStateProcessing, genai.FileStateUnspecified, "":
		default:
			return f, nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w after %s", domain.ErrTranscriptionTimeout, timeout)
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}

		next, err := get(ctx, f.Name)
		if err != nil {
			return nil, fmt.Errorf("get file state: %w", err)
		}
		f = next
	}
}

// Translate returns text in language. Empty text and the no-speech sentinel
// are returned unchanged without calling the API.
func (c *Client) Translate(ctx context.Context, text, language string) (string, error) {
	if strings.TrimSpace(text) == "" || text == domain.NoSpeech {
		return text, nil
	}
	out, err := c.generateText(ctx, translatePrompt(text, language))
	if err != nil {
		return "", fmt.Errorf("translate to %s: %w", language, err)
	}
	return out, nil
}

// Summarize condenses text into a hook or a short topic description.
func (c *Client) Summarize(ctx context.Context, text string, style Style) (string, error) {
	out, err := c.generateText(ctx, summarizePrompt(text, style))
	if err != nil {
		return "", fmt.Errorf("summarize %s: %w", style, err)
	}
	if style == StyleHook {
		return CleanHook(out), nil
	}
	if out == "" {
		return domain.DefaultTopic, nil
	}
	return out, nil
}

func (c *Client) generateText(ctx context.Context, prompt string) (string, error) {
	resp, err := c.genai.Models.GenerateContent(ctx, c.textModel, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}

// GenerateImage composes a new image from base and prompt. It returns nil
// bytes and no error when the model answered without an image.
func (c *Client) GenerateImage(ctx context.Context, base []byte, prompt, aspectRatio string) ([]byte, error) {
	parts := []*genai.Part{
		genai.NewPartFromBytes(base, http.DetectContentType(base)),
		genai.NewPartFromText(prompt),
	}
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
		ImageConfig:        &genai.ImageConfig{AspectRatio: aspectRatio},
	}
	resp, err := c.genai.Models.GenerateContent(ctx, c.imageModel,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, cfg)
	if err != nil {
		return nil, fmt.Errorf("generate image: %w", err)
	}
	return firstImage(resp), nil
}

// firstImage returns the first inline image payload of the response.
func firstImage(resp *genai.GenerateContentResponse) []byte {
	if resp == nil {
		return nil
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if p != nil && p.InlineData != nil && len(p.InlineData.Data) > 0 &&
				strings.HasPrefix(p.InlineData.MIMEType, "image/") {
				return p.InlineData.Data
			}
		}
	}
	return nil
}
