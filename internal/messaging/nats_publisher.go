/*
 * This file is part of Vox (https://github.com/voxlabs/vox-core).
 * Copyright (C) 2025 Vox Labs
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/voxlabs/vox-core/internal/events"
	"github.com/voxlabs/vox-core/internal/logging"
)

// SubjectPrefix is the root of all dictation subjects. Each event kind is
// published under its own subject so consumers can subscribe selectively.
const SubjectPrefix = "vox.dictation"

// Options configures the NATS connection.
type Options struct {
	URL           string
	MaxReconnect  int
	ReconnectWait time.Duration
}

// Publisher bridges dictation events onto NATS. It implements events.Emitter
// and never blocks the caller beyond the client's internal buffering.
type Publisher struct {
	conn *nats.Conn
}

// NewPublisher connects to the NATS server and returns a publisher.
func NewPublisher(opts Options) (*Publisher, error) {
	if opts.MaxReconnect == 0 {
		opts.MaxReconnect = 10
	}
	if opts.ReconnectWait == 0 {
		opts.ReconnectWait = 2 * time.Second
	}

	conn, err := nats.Connect(opts.URL,
		nats.Name("vox-core"),
		nats.MaxReconnects(opts.MaxReconnect),
		nats.ReconnectWait(opts.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logging.LogWarn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.Sugar.Infow("NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logging.Sugar.Infow("NATS connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", opts.URL, err)
	}

	logging.Sugar.Infow("Connected to NATS", "url", conn.ConnectedUrl())
	return &Publisher{conn: conn}, nil
}

// Emit publishes the event under its kind-specific subject. Publish failures
// are logged rather than returned; the dictation loop never stalls on the bus.
func (p *Publisher) Emit(event events.Event) {
	subject := fmt.Sprintf("%s.%s", SubjectPrefix, event.Kind)

	data, err := json.Marshal(event)
	if err != nil {
		logging.LogError(err, "Failed to marshal dictation event",
			zap.String("kind", string(event.Kind)),
		)
		return
	}

	if err := p.conn.Publish(subject, data); err != nil {
		logging.LogError(err, "Failed to publish dictation event",
			zap.String("subject", subject),
		)
		return
	}

	logging.LogEventPublish(subject, string(event.Kind))
}

// Close flushes buffered messages and drops the connection.
func (p *Publisher) Close() {
	if p.conn != nil {
		if err := p.conn.Flush(); err != nil {
			logging.LogWarn("Failed to flush NATS connection", zap.Error(err))
		}
		p.conn.Close()
	}
}
