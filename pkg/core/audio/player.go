package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"

	"github.com/vango-go/vocaiyze/pkg/core"
	"github.com/vango-go/vocaiyze/pkg/core/media"
)

// Player plays clips by piping them into an ffplay subprocess.
type Player struct {
	// Command is the player binary, "ffplay" by default.
	Command string
}

// NewPlayer returns an ffplay-backed player.
func NewPlayer() *Player {
	return &Player{Command: "ffplay"}
}

// Play blocks until the clip has finished playing or ctx is done.
func (p *Player) Play(ctx context.Context, clip *media.Clip) error {
	if clip.Empty() {
		return nil
	}
	bin, err := exec.LookPath(p.command())
	if err != nil {
		return core.NewDeviceUnavailableError(p.command()+" is required for playback (install ffmpeg and ensure it is in PATH)", err)
	}

	cmd := exec.CommandContext(ctx, bin, ffplayArgs(clip)...)
	cmd.Stdin = bytes.NewReader(clip.Data)
	cmd.Stdout = io.Discard
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffplay: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	return nil
}

func (p *Player) command() string {
	if p.Command == "" {
		return "ffplay"
	}
	return p.Command
}

func ffplayArgs(clip *media.Clip) []string {
	args := []string{"-nodisp", "-autoexit", "-loglevel", "error"}
	if clip.Format == "pcm" {
		channels := clip.Channels
		if channels <= 0 {
			channels = 1
		}
		rate := clip.SampleRate
		if rate <= 0 {
			rate = 24000
		}
		args = append(args,
			"-f", "s16le",
			"-ar", strconv.Itoa(rate),
			"-ac", strconv.Itoa(channels),
		)
	}
	return append(args, "-i", "pipe:0")
}
