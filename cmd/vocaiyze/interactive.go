package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/vango-go/vocaiyze/pkg/config"
	"github.com/vango-go/vocaiyze/pkg/core/audio"
	"github.com/vango-go/vocaiyze/pkg/core/dialog"
	"github.com/vango-go/vocaiyze/pkg/knowledge"
	"github.com/vango-go/vocaiyze/pkg/notify"
	"github.com/vango-go/vocaiyze/pkg/review"
)

func runInteractive(ctx context.Context, cfg config.Config, logger *slog.Logger, in io.Reader, out io.Writer) error {
	gen, err := buildGenerator(cfg)
	if err != nil {
		return err
	}
	vp, err := buildVoice(cfg)
	if err != nil {
		return err
	}

	rec, err := audio.NewRecorder()
	if err != nil {
		return err
	}
	defer rec.Close()
	rec.Logger = logger

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	term := review.NewTerminal(out)
	var reviewer dialog.Reviewer = term
	if cfg.Review == config.ReviewDialog {
		reviewer = review.NewDialog()
	}

	self, other := profiles(cfg)
	dcfg := dialog.Config{
		Capturer:        rec,
		Transcriber:     vp,
		Generator:       gen,
		Synthesizer:     vp,
		Player:          audio.NewPlayer(),
		Reviewer:        reviewer,
		MaxTurns:        cfg.MaxTurns,
		MaxTokens:       cfg.MaxTokens,
		Self:            self,
		Other:           other,
		WorkingLanguage: cfg.WorkingLanguage,
		CaptureDuration: cfg.CaptureDuration,
		Voice:           resolveVoice(cfg, logger),
		ReviewEnabled:   cfg.Review != config.ReviewOff,
		Farewell:        dialog.DefaultFarewell,
		Logger:          logger,
	}
	if cfg.Greeting {
		dcfg.Greeting = dialog.DefaultGreeting
	}
	if st != nil {
		defer st.Close()
		dcfg.Sink = st
	}

	orch, err := dialog.New(dcfg)
	if err != nil {
		return err
	}
	rec.OnLevel = orch.ReportLevel

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := term.Run(ctx, in); err != nil && ctx.Err() == nil {
			logger.Warn("operator input closed", "error", err)
		}
	}()

	fmt.Fprintln(out, infoStyle.Render("vocAIyze is listening. Type /help for commands."))
	if err := orch.Start(ctx); err != nil {
		return err
	}

	pres := newPresenter(out, notify.New(cfg.Notifications, logger))
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		pres.drain(orch.Events(), orch.Done())
	}()

	kb, err := knowledge.Load(cfg.KnowledgeBase, logger)
	if err != nil {
		logger.Warn("knowledge base unavailable", "error", err)
	}
	cmds := &commander{s: orch, voices: vp.Voices, kb: kb, language: cfg.WorkingLanguage, out: out}
	lines := term.Lines()
loop:
	for {
		select {
		case <-orch.Done():
			break loop
		case line, ok := <-lines:
			if !ok {
				orch.Stop()
				break loop
			}
			if cmds.handle(ctx, line) {
				orch.Stop()
				break loop
			}
		}
	}

	orch.Wait()
	wg.Wait()
	return nil
}
