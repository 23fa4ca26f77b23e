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
	"context"

	"github.com/retroenv/retrogolib/log"
)

const DEFAULT_QUEUE_SIZE = 16

type Kind uint8

const (
	PLAY_ONCE Kind = iota
	STOP
)

func (k Kind) String() string {
	switch k {
	case PLAY_ONCE:
		return "PlayOnce"
	case STOP:
		return "Stop"
	default:
		return "Unknown"
	}
}

// Message is a tagged request for the sound consumer. Timer carries the
// value the program wrote to the sound timer.
type Message struct {
	Kind  Kind
	Timer uint8
}

// Queue carries sound messages from the machine to the consumer.
type Queue struct {
	messages chan Message
}

func NewQueue(size int) *Queue {
	if size < 1 {
		size = DEFAULT_QUEUE_SIZE
	}
	return &Queue{messages: make(chan Message, size)}
}

// Push never blocks. It reports false when the message was dropped.
func (q *Queue) Push(msg Message) bool {
	select {
	case q.messages <- msg:
		return true
	default:
		return false
	}
}

// Trigger requests a single clip playback. A timer of zero still plays.
func (q *Queue) Trigger(timer uint8) {
	q.Push(Message{Kind: PLAY_ONCE, Timer: timer})
}

// Stop queues a STOP message. Unlike Trigger it waits for room until ctx is
// done, and reports false if the message was never queued.
func (q *Queue) Stop(ctx context.Context) bool {
	select {
	case q.messages <- Message{Kind: STOP}:
		return true
	case <-ctx.Done():
		return false
	}
}

func (q *Queue) Messages() <-chan Message {
	return q.messages
}

// Player plays a clip to completion or until ctx is cancelled.
type Player interface {
	Play(ctx context.Context, clip *Clip) error
	Close() error
}

// NullPlayer discards every clip.
type NullPlayer struct{}

func (NullPlayer) Play(ctx context.Context, clip *Clip) error { return nil }
func (NullPlayer) Close() error                               { return nil }

type Consumer struct {
	queue  *Queue
	player Player
	clip   *Clip
	logger *log.Logger
}

func NewConsumer(queue *Queue, player Player, clip *Clip, logger *log.Logger) *Consumer {
	if player == nil {
		player = NullPlayer{}
	}
	return &Consumer{queue: queue, player: player, clip: clip, logger: logger}
}

// Run blocks on the queue, playing the clip once per PLAY_ONCE message.
// It returns after a STOP message or when ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case msg := <-c.queue.messages:
			switch msg.Kind {
			case STOP:
				return nil

			case PLAY_ONCE:
				if c.logger != nil {
					c.logger.Debug("Playing beep", log.Int("timer", int(msg.Timer)))
				}

				err := c.player.Play(ctx, c.clip)

				if ctx.Err() != nil {
					return nil
				}

				if err != nil {
					return err
				}
			}
		}
	}
}
