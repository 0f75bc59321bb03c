// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

package context

import (
	"context"

	"github.com/google/uuid"
)

const (
	// RequestHeader carries the request id on hub API calls.
	RequestHeader = "X-Request-Id"
)

type RequestID struct{}

// WithUUID returns a context carrying a request identifier, minting one when
// the context has none. The id rides the RequestHeader of every hub call so
// hub-side logs can be correlated with the client's.
func WithUUID(c context.Context) (context.Context, string) {
	if id := c.Value(RequestID{}); id != nil {
		return c, id.(string)
	}
	newID := uuid.New().String()
	c = context.WithValue(c, RequestID{}, newID)
	return c, newID
}

// FromUUID returns a context carrying a request identifier received from a
// peer.
func FromUUID(c context.Context, reqID string) context.Context {
	return context.WithValue(c, RequestID{}, reqID)
}
