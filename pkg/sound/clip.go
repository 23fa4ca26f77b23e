// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

package sound

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

const DEFAULT_SAMPLE_RATE = 44100

const (
	BEEP_FREQUENCY = 440.0
	BEEP_DURATION  = 100 * time.Millisecond
	BEEP_AMPLITUDE = 0.25
)

var ErrUnsupportedClip = errors.New("Unsupported clip format")

// Clip is mono PCM audio normalised to [-1, 1].
type Clip struct {
	Samples    []float32
	SampleRate int
}

func (c *Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}

// Beep synthesises a square wave.
func Beep(sampleRate int, frequency float64, duration time.Duration) *Clip {
	count := int(duration.Seconds() * float64(sampleRate))
	period := float64(sampleRate) / frequency

	clip := &Clip{Samples: make([]float32, count), SampleRate: sampleRate}

	for i := range clip.Samples {
		if math.Mod(float64(i), period) < period/2 {
			clip.Samples[i] = BEEP_AMPLITUDE
		} else {
			clip.Samples[i] = -BEEP_AMPLITUDE
		}
	}

	return clip
}

func DefaultBeep() *Clip {
	return Beep(DEFAULT_SAMPLE_RATE, BEEP_FREQUENCY, BEEP_DURATION)
}

// LoadWAV decodes a WAV stream, keeping the first channel only.
func LoadWAV(r io.ReadSeeker) (*Clip, error) {
	dec := wav.NewDecoder(r)

	if !dec.IsValidFile() {
		return nil, errors.New("Invalid WAV file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("Could not decode WAV: %w", err)
	}

	channels := int(dec.NumChans)
	if channels < 1 || dec.BitDepth == 0 {
		return nil, errors.New("WAV file has no samples")
	}

	// AsFloat32Buffer normalises samples to [-1, 1]
	data := buf.AsFloat32Buffer().Data

	clip := &Clip{
		Samples:    make([]float32, 0, len(data)/channels),
		SampleRate: int(dec.SampleRate),
	}

	for i := 0; i < len(data); i += channels {
		clip.Samples = append(clip.Samples, data[i])
	}

	return clip, nil
}

// LoadMP3 decodes an MP3 stream. The decoder always yields 16 bit little
// endian stereo; only the left channel is kept.
func LoadMP3(r io.Reader) (*Clip, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("Could not decode MP3: %w", err)
	}

	clip := &Clip{SampleRate: dec.SampleRate()}
	chunk := make([]byte, 4096)

	for {
		n, err := io.ReadFull(dec, chunk)

		for i := 0; i+1 < n; i += 4 {
			sample := int16(binary.LittleEndian.Uint16(chunk[i:]))
			clip.Samples = append(clip.Samples, float32(sample)/32768)
		}

		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("Could not decode MP3: %w", err)
		}
	}

	return clip, nil
}

// LoadClip picks a decoder from the file extension.
func LoadClip(path string) (*Clip, error) {
	ext := strings.ToLower(filepath.Ext(path))

	if ext != ".wav" && ext != ".mp3" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedClip, ext)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if ext == ".wav" {
		return LoadWAV(file)
	}

	return LoadMP3(file)
}

// Resample converts the clip to rate with linear interpolation.
func (c *Clip) Resample(rate int) *Clip {
	if rate == c.SampleRate || c.SampleRate <= 0 || len(c.Samples) == 0 {
		return c
	}

	count := int(int64(len(c.Samples)) * int64(rate) / int64(c.SampleRate))
	out := &Clip{Samples: make([]float32, count), SampleRate: rate}
	step := float64(c.SampleRate) / float64(rate)
	last := len(c.Samples) - 1

	for i := range out.Samples {
		pos := float64(i) * step
		lo := int(pos)

		if lo >= last {
			out.Samples[i] = c.Samples[last]
			continue
		}

		frac := float32(pos - float64(lo))
		out.Samples[i] = c.Samples[lo] + (c.Samples[lo+1]-c.Samples[lo])*frac
	}

	return out
}

// Bytes encodes the samples as 32 bit little endian floats.
func (c *Clip) Bytes() []byte {
	data := make([]byte, len(c.Samples)*4)

	for i, sample := range c.Samples {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(sample))
	}

	return data
}
