// Package media defines the audio handle passed between capture,
// transcription, synthesis and playback.
package media

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"
)

// Clip is an in-memory piece of audio.
type Clip struct {
	Data       []byte        // Encoded audio (wav, mp3, ...) or raw s16le PCM
	Format     string        // "wav", "mp3", "pcm", ...
	SampleRate int           // Hz; zero when unknown or implied by the container
	Channels   int           // zero means mono
	Duration   time.Duration // zero when unknown
}

// Empty reports whether the clip carries no audio.
func (c *Clip) Empty() bool {
	return c == nil || len(c.Data) == 0
}

// FormatFromPath guesses an audio format from a file extension.
func FormatFromPath(path string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "wav", "wave":
		return "wav"
	case "mp3", "mpeg":
		return "mp3"
	case "m4a":
		return "m4a"
	case "ogg":
		return "ogg"
	case "flac":
		return "flac"
	case "webm":
		return "webm"
	default:
		return ""
	}
}

// MediaType returns the MIME type of an audio format.
func MediaType(format string) string {
	switch format {
	case "wav":
		return "audio/wav"
	case "mp3":
		return "audio/mpeg"
	case "m4a":
		return "audio/m4a"
	case "ogg":
		return "audio/ogg"
	case "flac":
		return "audio/flac"
	case "webm":
		return "audio/webm"
	default:
		return "application/octet-stream"
	}
}

// NewPCMClip wraps 16-bit little-endian mono samples.
func NewPCMClip(samples []int16, sampleRate int) *Clip {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	var d time.Duration
	if sampleRate > 0 {
		d = time.Duration(len(samples)) * time.Second / time.Duration(sampleRate)
	}
	return &Clip{Data: buf, Format: "pcm", SampleRate: sampleRate, Channels: 1, Duration: d}
}

// ToWAV returns the clip as a WAV container. Non-PCM clips are returned unchanged.
func (c *Clip) ToWAV() (*Clip, error) {
	if c == nil {
		return nil, errors.New("nil clip")
	}
	if c.Format != "pcm" {
		return c, nil
	}
	wav, err := EncodeWAV(c.Data, c.SampleRate, c.Channels)
	if err != nil {
		return nil, err
	}
	return &Clip{Data: wav, Format: "wav", SampleRate: c.SampleRate, Channels: c.Channels, Duration: c.Duration}, nil
}

// EncodeWAV prefixes s16le PCM data with a RIFF/WAVE header.
func EncodeWAV(pcm []byte, sampleRate, channels int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if channels <= 0 {
		channels = 1
	}
	const bitsPerSample = 16
	blockAlign := channels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign

	var buf bytes.Buffer
	buf.Grow(44 + len(pcm))
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes(), nil
}

// RMS returns the root-mean-square level of samples, normalized to 0..1.
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s) / math.MaxInt16
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}
