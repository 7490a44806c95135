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

package transcription

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/voxlabs/vox-core/internal/events"
)

// Error is a transcription failure tagged with its taxonomy kind so callers
// can branch on class instead of parsing messages.
type Error struct {
	Kind    events.ErrorKind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transcription: %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("transcription: %s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind events.ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf maps any error to its taxonomy kind. Context cancellation maps to
// Cancelled (an expected outcome, not a failure) and deadline expiry to
// NetworkTimeout; everything unclassified is Internal.
func KindOf(err error) events.ErrorKind {
	if err == nil {
		return ""
	}

	var terr *Error
	if errors.As(err, &terr) {
		return terr.Kind
	}

	if errors.Is(err, context.Canceled) {
		return events.ErrCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return events.ErrNetworkTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return events.ErrNetworkTimeout
	}

	return events.ErrInternal
}
