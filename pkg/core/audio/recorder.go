// Package audio records from the default microphone and plays clips back
// through ffplay.
package audio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/vango-go/vocaiyze/pkg/core"
	"github.com/vango-go/vocaiyze/pkg/core/media"
)

const (
	// SampleRate is the capture rate Whisper-style services expect.
	SampleRate = 16000
	// Channels is mono.
	Channels = 1
	// FramesPerBuffer is one read, about 64ms at SampleRate.
	FramesPerBuffer = 1024
	// DefaultReadTimeout bounds a single chunk read before the device is
	// considered stalled.
	DefaultReadTimeout = 2 * time.Second
)

// chunkReader fills the recorder buffer with one chunk per Read.
type chunkReader interface {
	Read() error
}

// Recorder captures fixed-duration utterances from the default input device.
type Recorder struct {
	mu     sync.Mutex
	buffer []int16

	// OnLevel, if set, receives the RMS level (0..1) of every chunk read.
	OnLevel func(level float64)
	// ReadTimeout bounds one chunk read. Zero means DefaultReadTimeout.
	ReadTimeout time.Duration
	Logger      *slog.Logger
}

// NewRecorder initializes PortAudio. Call Close when done.
func NewRecorder() (*Recorder, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, core.NewDeviceUnavailableError("initialize audio", err)
	}
	return &Recorder{
		buffer: make([]int16, FramesPerBuffer),
		Logger: slog.Default(),
	}, nil
}

// Capture records for duration and returns 16-bit mono PCM. Cancellation is
// observed between chunk reads. A read that stalls past ReadTimeout returns
// a timeout error.
func (r *Recorder) Capture(ctx context.Context, duration time.Duration) (*media.Clip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stream, err := portaudio.OpenDefaultStream(Channels, 0, SampleRate, FramesPerBuffer, r.buffer)
	if err != nil {
		return nil, core.NewDeviceUnavailableError("open input stream", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, core.NewDeviceUnavailableError("start input stream", err)
	}

	samples, err := r.readChunks(ctx, stream, chunksFor(duration))
	if core.IsType(err, core.ErrTimeout) {
		// Abort unblocks the stalled read without draining.
		_ = stream.Abort()
		return nil, err
	}
	_ = stream.Stop()
	if err != nil {
		return nil, err
	}
	return media.NewPCMClip(samples, SampleRate), nil
}

func (r *Recorder) readChunks(ctx context.Context, s chunkReader, chunks int) ([]int16, error) {
	timeout := r.ReadTimeout
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	samples := make([]int16, 0, chunks*FramesPerBuffer)
	for range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		done := make(chan error, 1)
		go func() { done <- s.Read() }()
		timer.Reset(timeout)

		var err error
		select {
		case err = <-done:
		case <-timer.C:
			return nil, core.NewTimeoutError(fmt.Sprintf("input stream read stalled for %v", timeout))
		}
		if err != nil {
			if err == portaudio.InputOverflowed {
				r.logger().Debug("input overflowed", "error", err)
			} else {
				return nil, core.NewDeviceUnavailableError("read input stream", err)
			}
		}
		samples = append(samples, r.buffer...)
		if r.OnLevel != nil {
			r.OnLevel(media.RMS(r.buffer))
		}
	}
	return samples, nil
}

// Close releases PortAudio.
func (r *Recorder) Close() error {
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("terminate audio: %w", err)
	}
	return nil
}

func (r *Recorder) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// chunksFor returns how many FramesPerBuffer reads cover duration, at
// least one.
func chunksFor(duration time.Duration) int {
	frames := int(duration.Seconds() * SampleRate)
	n := (frames + FramesPerBuffer - 1) / FramesPerBuffer
	if n < 1 {
		n = 1
	}
	return n
}
