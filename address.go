// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package msgpubsub

import (
	"fmt"
	"strings"
)

// Transport selects the channel class of an endpoint.
type Transport int

const (
	// IPC is the cross-process transport, a unix socket under the channel
	// root directory.
	IPC Transport = iota
	// InProc is the in-process transport, visible only to sockets sharing
	// one Context.
	InProc
)

const (
	ipcScheme    = "ipc://"
	inprocScheme = "inproc://"
	ipcSuffix    = ".ipc"

	// DefaultIPCRoot is the directory holding cross-process channels.
	DefaultIPCRoot = "/tmp/docker_share"

	// maxUnixPath is the size of sun_path on linux, including the NUL.
	maxUnixPath = 108
)

func (t Transport) String() string {
	switch t {
	case IPC:
		return "ipc"
	case InProc:
		return "inproc"
	default:
		return fmt.Sprintf("transport(%d)", int(t))
	}
}

// ParseTransport converts "ipc" or "inproc" to a Transport.
func ParseTransport(s string) (Transport, error) {
	switch strings.ToLower(s) {
	case "ipc":
		return IPC, nil
	case "inproc":
		return InProc, nil
	default:
		return 0, fmt.Errorf("%w: unknown transport %q", ErrInvalidEndpoint, s)
	}
}

// Address resolves the endpoint name to the address of its channel. The
// name must be one path element, so distinct names never share a channel.
//
// The layout is:
//
//	IPC     ipc://<root>/<name>.ipc
//	InProc  inproc://<name>
func Address(root, name string, t Transport) (string, error) {
	switch {
	case name == "":
		return "", fmt.Errorf("%w: empty name", ErrInvalidEndpoint)
	case name == "." || name == ".." || strings.ContainsAny(name, "/\x00"):
		return "", fmt.Errorf("%w: name %q is not a single path element", ErrInvalidEndpoint, name)
	}

	switch t {
	case IPC:
		if root == "" {
			root = DefaultIPCRoot
		}
		p := strings.TrimSuffix(root, "/") + "/" + name + ipcSuffix
		if len(p) >= maxUnixPath {
			return "", fmt.Errorf("%w: ipc path too long: %s", ErrInvalidEndpoint, p)
		}
		return ipcScheme + p, nil
	case InProc:
		return inprocScheme + name, nil
	default:
		return "", fmt.Errorf("%w: %v", ErrInvalidEndpoint, t)
	}
}

// ipcPath strips the scheme of an ipc address.
func ipcPath(addr string) string {
	return strings.TrimPrefix(addr, ipcScheme)
}

// inprocName strips the scheme of an inproc address.
func inprocName(addr string) string {
	return strings.TrimPrefix(addr, inprocScheme)
}
