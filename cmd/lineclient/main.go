// Command lineclient connects to a line server, prints its welcome message,
// sends one line read from stdin and prints the response.
//
//	lineclient [flags] <target-ip> <port>
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"

	"github.com/cyberinferno/lineclient/client"
	"github.com/cyberinferno/lineclient/config"
	"github.com/cyberinferno/lineclient/exitcode"
	"github.com/cyberinferno/lineclient/logger"
	"github.com/cyberinferno/lineclient/session"
)

const serviceName = "lineclient"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	// the first signal ends the session, a second one kills the process
	context.AfterFunc(ctx, stop)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(int(code))
}

// run is the single place where errors become an exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) exitcode.Code {
	cfg, err := config.Parse(serviceName, args, stderr)
	if err != nil {
		return exitcode.FromError(err)
	}

	log, err := newLogger(cfg, stderr)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return exitcode.Failure
	}
	defer func() { _ = log.Close() }()

	err = communicate(ctx, cfg, stdin, stdout, log)
	code := exitcode.FromError(err)
	if code != exitcode.OK {
		_, _ = fmt.Fprintln(stdout, "Error received: exiting")
		log.Error("session failed",
			logger.Field{Key: "error", Value: err.Error()},
			logger.Field{Key: "exit_code", Value: int(code)},
			logger.Field{Key: "kind", Value: code.String()})
	}

	return code
}

func communicate(ctx context.Context, cfg config.Config, stdin io.Reader, stdout io.Writer, log logger.Logger) error {
	c := client.New(cfg.Client)
	defer func() { _ = c.Close() }()

	c.OnConnectionState(func(event client.ConnectionStateEvent) {
		fields := []logger.Field{
			{Key: "state", Value: event.State.String()},
			{Key: "addr", Value: event.Address},
		}
		if event.Error != nil {
			fields = append(fields, logger.Field{Key: "error", Value: event.Error.Error()})
		}

		log.Debug("connection state changed", fields...)
	})

	// an interrupt closes the connection, which unblocks any pending read
	stopAfter := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stopAfter()

	if err := c.Connect(ctx); err != nil {
		return interrupted(ctx, err)
	}

	log.Info("connected", logger.Field{Key: "addr", Value: cfg.Address()})
	return interrupted(ctx, session.New(c, bufio.NewReader(stdin), stdout, cfg.Capacity, log).Run(ctx))
}

// interrupted reports a failure caused by ctx ending as the interrupt itself:
// the receive or send error that follows closing the connection is noise.
func interrupted(ctx context.Context, err error) error {
	if err == nil || ctx.Err() == nil || errors.Is(err, ctx.Err()) {
		return err
	}

	return errors.Wrapf(ctx.Err(), "interrupted: %v", err)
}

func newLogger(cfg config.Config, stderr io.Writer) (logger.Logger, error) {
	if cfg.LogDir == "" {
		return logger.NewConsoleLogger(stderr, serviceName, cfg.LogLevel), nil
	}

	return logger.NewConsoleFileLogger(stderr, serviceName, cfg.LogDir, cfg.LogLevel)
}
