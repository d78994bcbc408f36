// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package slogx holds the slog attribute helpers shared by the sockets
// and the command line programs.
package slogx

import (
	"fmt"
	"log/slog"
)

const (
	KeyError    = "error"
	KeyLogger   = "logger"
	KeyEndpoint = "endpoint"
	KeyTopic    = "topic"
	KeySocket   = "socket"
)

// Error returns an attribute holding the error message. A nil error is
// rendered as an empty string.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

// LoggerName names the component emitting the record.
func LoggerName(name string) slog.Attr {
	return slog.String(KeyLogger, name)
}

// Endpoint returns the resolved address attribute.
func Endpoint(addr string) slog.Attr {
	return slog.String(KeyEndpoint, addr)
}

// Topic renders a topic, which may hold arbitrary bytes, as a quoted string.
func Topic(topic string) slog.Attr {
	return slog.String(KeyTopic, fmt.Sprintf("%q", topic))
}

// Socket returns the socket id attribute.
func Socket(id string) slog.Attr {
	return slog.String(KeySocket, id)
}
