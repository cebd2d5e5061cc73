// Package exitcode maps session errors to process exit codes. Each fatal
// condition has its own code so scripts and logs can tell them apart.
package exitcode

import (
	"context"

	"github.com/pkg/errors"

	"github.com/cyberinferno/lineclient/client"
	"github.com/cyberinferno/lineclient/config"
	"github.com/cyberinferno/lineclient/linereader"
	"github.com/cyberinferno/lineclient/transfer"
)

// Code is a process exit status.
type Code int

const (
	OK               Code = 0
	Failure          Code = 1
	Usage            Code = 2
	Connect          Code = 3
	Send             Code = 4
	Receive          Code = 5
	ConnectionClosed Code = 6
	Input            Code = 7
	Interrupted      Code = 8
)

// String returns a short name for the code, used in logs.
func (c Code) String() string {
	switch c {
	case OK:
		return "ok"
	case Failure:
		return "failure"
	case Usage:
		return "usage"
	case Connect:
		return "connect"
	case Send:
		return "send"
	case Receive:
		return "receive"
	case ConnectionClosed:
		return "connection_closed"
	case Input:
		return "input"
	case Interrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// FromError returns the exit code for err. A nil error is OK; an error
// matching none of the known kinds is Failure. Cancellation wins over the
// failure it caused.
func FromError(err error) Code {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, context.Canceled):
		return Interrupted
	case errors.Is(err, config.ErrUsage):
		return Usage
	case errors.Is(err, client.ErrConnect), errors.Is(err, client.ErrClosed):
		return Connect
	case errors.Is(err, transfer.ErrConnectionClosed):
		return ConnectionClosed
	case errors.Is(err, transfer.ErrSend):
		return Send
	case errors.Is(err, transfer.ErrReceive):
		return Receive
	case errors.Is(err, linereader.ErrNoInput), errors.Is(err, linereader.ErrRead):
		return Input
	default:
		return Failure
	}
}
