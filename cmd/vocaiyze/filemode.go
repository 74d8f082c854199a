package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vango-go/vocaiyze/pkg/config"
	"github.com/vango-go/vocaiyze/pkg/core/conversation"
	"github.com/vango-go/vocaiyze/pkg/core/dialog"
	"github.com/vango-go/vocaiyze/pkg/core/media"
)

const timestampLayout = "20060102_150405"

// fileCapturer hands the pipeline a clip read from disk.
type fileCapturer struct {
	clip *media.Clip
}

func (f *fileCapturer) Capture(ctx context.Context, _ time.Duration) (*media.Clip, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.clip == nil {
		return nil, errors.New("no input clip")
	}
	return f.clip, nil
}

// fileWriter is a Player that saves the clip instead of playing it.
type fileWriter struct {
	path    string
	written bool
}

func (w *fileWriter) Play(_ context.Context, clip *media.Clip) error {
	if clip.Empty() {
		return errors.New("synthesizer returned no audio")
	}
	if err := os.WriteFile(w.path, clip.Data, 0o644); err != nil {
		return fmt.Errorf("write audio: %w", err)
	}
	w.written = true
	return nil
}

// fileVoice is what file mode needs from the speech adapter.
type fileVoice interface {
	dialog.Transcriber
	dialog.Synthesizer
}

type fileJob struct {
	input  string
	output string
	now    time.Time

	gen    dialog.Generator
	voice  fileVoice
	cfg    config.Config
	logger *slog.Logger
}

func runFile(ctx context.Context, cfg config.Config, logger *slog.Logger, input, output string, out io.Writer) error {
	gen, err := buildGenerator(cfg)
	if err != nil {
		return err
	}
	vp, err := buildVoice(cfg)
	if err != nil {
		return err
	}
	job := &fileJob{
		input:  input,
		output: output,
		now:    time.Now(),
		gen:    gen,
		voice:  vp,
		cfg:    cfg,
		logger: logger,
	}
	written, err := job.run(ctx)
	if err != nil {
		return err
	}
	for _, path := range written {
		fmt.Fprintln(out, infoStyle.Render("wrote "+path))
	}
	return nil
}

// run processes the input and returns the paths it wrote.
func (j *fileJob) run(ctx context.Context) ([]string, error) {
	data, err := os.ReadFile(j.input)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(j.input))
	switch {
	case ext == ".txt":
		return j.fromText(ctx, string(data))
	case media.FormatFromPath(j.input) == "mp3" || media.FormatFromPath(j.input) == "wav":
		clip := &media.Clip{Data: data, Format: media.FormatFromPath(j.input)}
		return j.fromAudio(ctx, clip)
	default:
		return nil, fmt.Errorf("unsupported input %q: want .txt, .mp3 or .wav", j.input)
	}
}

func (j *fileJob) fromText(ctx context.Context, text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("input file is empty")
	}
	path := j.output
	if path == "" {
		path = fmt.Sprintf("output_%s.mp3", j.now.Format(timestampLayout))
	}
	writer := &fileWriter{path: path}
	p, err := j.pipeline(nil, writer)
	if err != nil {
		return nil, err
	}
	self, _ := profiles(j.cfg)
	if _, err := p.Respond(ctx, conversation.SpeakerSelf, self, text, ""); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

func (j *fileJob) fromAudio(ctx context.Context, clip *media.Clip) ([]string, error) {
	base := j.output
	if base == "" {
		base = "response_" + j.now.Format(timestampLayout)
	} else {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	audioPath := base + ".mp3"
	textPath := base + ".txt"

	writer := &fileWriter{path: audioPath}
	p, err := j.pipeline(&fileCapturer{clip: clip}, writer)
	if err != nil {
		return nil, err
	}
	self, _ := profiles(j.cfg)
	res, err := p.RunTurn(ctx, conversation.SpeakerSelf, self)
	if errors.Is(err, dialog.ErrNoSpeech) {
		return nil, fmt.Errorf("no speech found in %s", j.input)
	}
	if res != nil && res.Final != "" {
		if werr := os.WriteFile(textPath, []byte(res.Final+"\n"), 0o644); werr != nil {
			return nil, fmt.Errorf("write response text: %w", werr)
		}
	}
	if err != nil {
		return nil, err
	}
	return []string{textPath, audioPath}, nil
}

func (j *fileJob) pipeline(capturer dialog.Capturer, player dialog.Player) (*dialog.Pipeline, error) {
	if capturer == nil {
		capturer = &fileCapturer{}
	}
	controller := dialog.NewController(dialog.ControllerConfig{
		Synthesizer: j.voice,
		Player:      player,
		Voice:       resolveVoice(j.cfg, j.logger),
		Logger:      j.logger,
	})
	self, other := profiles(j.cfg)
	return dialog.NewPipeline(dialog.PipelineConfig{
		Capturer:    capturer,
		Transcriber: j.voice,
		Generator:   j.gen,
		Controller:  controller,
		Buffer: conversation.NewBuffer(
			conversation.WithMaxTurns(j.cfg.MaxTurns),
			conversation.WithMaxTokens(j.cfg.MaxTokens),
			conversation.WithSpeakerLabels(self.Label, other.Label),
		),
		WorkingLanguage: j.cfg.WorkingLanguage,
		Logger:          j.logger,
	})
}
