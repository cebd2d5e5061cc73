// Package config turns the command line of lineclient into a Config.
package config

import (
	"flag"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/cyberinferno/lineclient/client"
)

// DefaultCapacity is the default size of every message buffer.
const DefaultCapacity = 1024

// ErrUsage is returned for any malformed command line.
var ErrUsage = errors.New("usage error")

// Config is the complete client configuration.
type Config struct {
	// TargetIP is the IPv4 address of the server.
	TargetIP net.IP
	// Port is the TCP port of the server, 1-65535.
	Port int
	// Capacity is the size in bytes of each message buffer.
	Capacity int
	// Client holds the connection settings derived from TargetIP and Port.
	Client client.Config
	// LogLevel is the minimum level written to the log.
	LogLevel zerolog.Level
	// LogDir enables daily log files when non-empty.
	LogDir string
}

// Address returns TargetIP and Port joined as "host:port".
func (c Config) Address() string {
	return net.JoinHostPort(c.TargetIP.String(), strconv.Itoa(c.Port))
}

// Parse reads flags and the two positional arguments <target-ip> <port>.
// The usage text is written to output on any error.
//
// Parameters:
//   - name: Program name shown in the usage text
//   - args: Command line arguments without the program name
//   - output: Destination of usage and flag errors
//
// Returns:
//   - The parsed Config
//   - An error wrapping ErrUsage if the command line is invalid
func Parse(name string, args []string, output io.Writer) (Config, error) {
	defaults := client.DefaultConfig("")

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(output, "Usage: %s [flags] <target-ip> <port>\n", name)
		fs.PrintDefaults()
	}

	var (
		capacity       = fs.Int("capacity", DefaultCapacity, "size in bytes of each message buffer")
		connectTimeout = fs.Duration("connect-timeout", defaults.ConnectionTimeout, "connection timeout, 0 for none")
		readTimeout    = fs.Duration("read-timeout", defaults.ReadTimeout, "timeout for each read, 0 for none")
		writeTimeout   = fs.Duration("write-timeout", defaults.WriteTimeout, "timeout for each write, 0 for none")
		logLevel       = fs.String("log-level", zerolog.WarnLevel.String(), "minimum log level (debug, info, warn, error)")
		logDir         = fs.String("log-dir", "", "directory for daily log files, empty to disable")
	)

	if err := fs.Parse(args); err != nil {
		return Config{}, errors.Wrap(ErrUsage, err.Error())
	}

	cfg, err := build(fs.Args(), *capacity, *logLevel)
	if err != nil {
		fs.Usage()
		return Config{}, err
	}

	for _, d := range []time.Duration{*connectTimeout, *readTimeout, *writeTimeout} {
		if d < 0 {
			fs.Usage()
			return Config{}, errors.Wrapf(ErrUsage, "negative timeout %s", d)
		}
	}

	cfg.LogDir = *logDir
	cfg.Client = client.Config{
		Address:           cfg.Address(),
		ConnectionTimeout: *connectTimeout,
		ReadTimeout:       *readTimeout,
		WriteTimeout:      *writeTimeout,
	}

	return cfg, nil
}

func build(positional []string, capacity int, logLevel string) (Config, error) {
	if len(positional) != 2 {
		return Config{}, errors.Wrapf(ErrUsage, "expected 2 arguments, got %d", len(positional))
	}

	ip, err := ParseIPv4(positional[0])
	if err != nil {
		return Config{}, err
	}

	port, err := ParsePort(positional[1])
	if err != nil {
		return Config{}, err
	}

	if capacity < 1 {
		return Config{}, errors.Wrapf(ErrUsage, "capacity %d must be positive", capacity)
	}

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil || level == zerolog.NoLevel {
		return Config{}, errors.Wrapf(ErrUsage, "invalid log level %q", logLevel)
	}

	return Config{TargetIP: ip, Port: port, Capacity: capacity, LogLevel: level}, nil
}

// ParseIPv4 accepts only a dotted-decimal IPv4 address. Host names are
// rejected, nothing is resolved.
func ParseIPv4(s string) (net.IP, error) {
	ip := net.ParseIP(s)
	if ip == nil || strings.Contains(s, ":") || ip.To4() == nil {
		return nil, errors.Wrapf(ErrUsage, "invalid IPv4 address %q", s)
	}

	return ip.To4(), nil
}

// ParsePort accepts a decimal port in 1-65535.
func ParsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil || port < 1 || port > 65535 {
		return 0, errors.Wrapf(ErrUsage, "invalid port %q", s)
	}

	return port, nil
}
