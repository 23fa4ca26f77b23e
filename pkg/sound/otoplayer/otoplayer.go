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

// Package otoplayer plays sound clips on the host audio device.
package otoplayer

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/lassandro/gochip8/pkg/sound"
)

const POLL_INTERVAL = 5 * time.Millisecond

// Player owns the process wide oto context. Only one may exist.
type Player struct {
	ctx        *oto.Context
	sampleRate int

	mutex sync.Mutex
	cache map[*sound.Clip][]byte
}

func New(sampleRate int) (*Player, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready

	return &Player{
		ctx:        ctx,
		sampleRate: sampleRate,
		cache:      make(map[*sound.Clip][]byte),
	}, nil
}

func (op *Player) encode(clip *sound.Clip) []byte {
	op.mutex.Lock()
	defer op.mutex.Unlock()

	data, ok := op.cache[clip]
	if !ok {
		data = clip.Resample(op.sampleRate).Bytes()
		op.cache[clip] = data
	}

	return data
}

func (op *Player) Play(ctx context.Context, clip *sound.Clip) error {
	if clip == nil || len(clip.Samples) == 0 {
		return nil
	}

	player := op.ctx.NewPlayer(bytes.NewReader(op.encode(clip)))
	defer player.Close()

	player.Play()

	ticker := time.NewTicker(POLL_INTERVAL)
	defer ticker.Stop()

	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-ticker.C:
		}
	}

	return player.Err()
}

func (op *Player) Close() error {
	return op.ctx.Suspend()
}
