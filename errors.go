// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package msgpubsub

import "errors"

var (
	// ErrInvalidEndpoint is returned when an endpoint name or transport
	// cannot be resolved to an address.
	ErrInvalidEndpoint = errors.New("msgpubsub: invalid endpoint")

	// ErrAddressInUse is returned when another publisher is already bound
	// to the endpoint.
	ErrAddressInUse = errors.New("msgpubsub: address already in use")

	// ErrInvalidConfig is returned when the configuration cannot be loaded
	// or holds unusable values.
	ErrInvalidConfig = errors.New("msgpubsub: invalid config")

	// ErrContextTerminated is returned by operations on sockets whose
	// context has been closed.
	ErrContextTerminated = errors.New("msgpubsub: context terminated")

	// ErrClosed is returned by operations on a closed publisher or subscriber.
	ErrClosed = errors.New("msgpubsub: socket closed")

	// ErrTimeout is returned when a bounded receive expires without a message.
	ErrTimeout = errors.New("msgpubsub: receive timeout")
)
