// Copyright © by Jeff Foley 2023-2024. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

// Package pubsub provides a channel-backed logger usable both as an
// io.Writer target for log/slog and as a broadcast source for the serve
// subcommand's websocket clients.
package pubsub

import "sync"

// Logger buffers log lines on a channel and fans them out to subscribers.
type Logger struct {
	logChannel chan *string // primary buffered channel, also returned by Subscribe.
	mu         sync.Mutex
	subs       []chan *string // additional fanout subscribers (serve command).
}

// NewLogger initializes a Logger with a 100-entry buffer.
func NewLogger() *Logger {
	return &Logger{
		logChannel: make(chan *string, 100),
	}
}

// Publish sends msg to the primary channel and to every fanout subscriber.
// Thread-safe.
func (l *Logger) Publish(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	select {
	case l.logChannel <- &msg:
	default:
		// Primary channel full: drop the oldest entry rather than block.
		<-l.logChannel
		l.logChannel <- &msg
	}

	for _, sub := range l.subs {
		select {
		case sub <- &msg:
		default:
		}
	}
}

// Write allows the Logger to be used as a Writer and in structured logging.
func (l *Logger) Write(p []byte) (n int, err error) {
	l.Publish(string(p))
	return len(p), nil
}

// Subscribe provides a read-only channel to receive log messages.
func (l *Logger) Subscribe() <-chan *string {
	return l.logChannel
}

// SubscribeFanout registers an independent subscriber channel, used by the
// serve subcommand to stream log lines to each connected websocket client
// without draining the primary channel.
func (l *Logger) SubscribeFanout(buffer int) <-chan *string {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch := make(chan *string, buffer)
	l.subs = append(l.subs, ch)
	return ch
}
