// Command lineserver is a peer for lineclient: it greets every connection
// with a banner, reads one line, replies and waits for the client to close.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/cyberinferno/lineclient/cacher"
	"github.com/cyberinferno/lineclient/logger"
	"github.com/cyberinferno/lineclient/tcpserver"
)

const serviceName = "lineserver"

var replies = map[string]tcpserver.ReplyFunc{
	"ack":  tcpserver.AckReply,
	"echo": tcpserver.EchoReply,
}

type options struct {
	addr        string
	welcome     string
	welcomeFile string
	reply       tcpserver.ReplyFunc
	capacity    int
	timeout     time.Duration
	bannerTTL   time.Duration
	redisAddr   string
	logLevel    zerolog.Level
}

func main() {
	os.Exit(start())
}

func start() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, err := parse(os.Args[1:], os.Stderr)
	if err != nil {
		return 2
	}

	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	defer signal.Stop(reload)

	if err := serve(ctx, opts, os.Stderr, reload); err != nil {
		return 1
	}

	return 0
}

func parse(args []string, output io.Writer) (options, error) {
	fs := flag.NewFlagSet(serviceName, flag.ContinueOnError)
	fs.SetOutput(output)

	var (
		opts     options
		reply    string
		logLevel string
	)
	fs.StringVar(&opts.addr, "addr", "127.0.0.1:9000", "listen address")
	fs.StringVar(&opts.welcome, "welcome", "welcome", "welcome banner")
	fs.StringVar(&opts.welcomeFile, "welcome-file", "", "read the welcome banner from this file, re-read on SIGHUP")
	fs.StringVar(&reply, "reply", "ack", "reply mode: ack or echo")
	fs.IntVar(&opts.capacity, "capacity", 1024, "size in bytes of the received message buffer")
	fs.DurationVar(&opts.timeout, "timeout", time.Minute, "session time limit, 0 for none")
	fs.DurationVar(&opts.bannerTTL, "banner-ttl", time.Minute, "how long a resolved banner is reused")
	fs.StringVar(&opts.redisAddr, "redis-addr", "", "share the banner through this Redis server")
	fs.StringVar(&logLevel, "log-level", zerolog.InfoLevel.String(), "minimum log level")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	var ok bool
	if opts.reply, ok = replies[reply]; !ok {
		err := fmt.Errorf("unknown reply mode %q", reply)
		_, _ = fmt.Fprintln(output, err)
		return options{}, err
	}

	if opts.capacity < 1 {
		err := fmt.Errorf("capacity %d must be positive", opts.capacity)
		_, _ = fmt.Fprintln(output, err)
		return options{}, err
	}

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		_, _ = fmt.Fprintln(output, err)
		return options{}, err
	}
	opts.logLevel = level

	return opts, nil
}

// serve runs the server until ctx is done. Each value on reload re-reads the
// banner and invalidates the cached one.
func serve(ctx context.Context, opts options, stderr io.Writer, reload <-chan os.Signal) error {
	log := logger.NewConsoleLogger(stderr, serviceName, opts.logLevel)
	defer func() { _ = log.Close() }()

	var banners cacher.Cacher[string]
	if opts.redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: opts.redisAddr})
		defer func() { _ = rdb.Close() }()

		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Error("redis unavailable", logger.Field{Key: "addr", Value: opts.redisAddr}, logger.Field{Key: "error", Value: err})
			return err
		}

		banners = cacher.NewRedisCacher[string](rdb, serviceName+":")
	} else {
		banners = cacher.NewMemoryCacher[string](cache.NoExpiration, 10*time.Minute)
	}

	text, err := welcomeText(opts)
	if err != nil {
		log.Error("welcome banner unreadable", logger.Field{Key: "file", Value: opts.welcomeFile}, logger.Field{Key: "error", Value: err})
		return err
	}

	banner := tcpserver.NewBanner(banners, text, opts.bannerTTL)
	s := tcpserver.NewLineServer(serviceName, opts.addr, log, tcpserver.LineSessionConfig{
		Welcome:  banner,
		Reply:    opts.reply,
		Capacity: opts.capacity,
		Timeout:  opts.timeout,
	})
	if err := s.Start(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			s.Stop()
			return nil
		case <-reload:
			reloadBanner(ctx, banner, opts, log)
		}
	}
}

func reloadBanner(ctx context.Context, banner *tcpserver.Banner, opts options, log logger.Logger) {
	text, err := welcomeText(opts)
	if err != nil {
		log.Warn("banner reload failed, keeping the current one", logger.Field{Key: "file", Value: opts.welcomeFile}, logger.Field{Key: "error", Value: err})
		return
	}

	if err := banner.Set(ctx, text); err != nil {
		log.Warn("banner cache invalidation failed", logger.Field{Key: "error", Value: err})
		return
	}

	log.Info("banner reloaded")
}

// welcomeText returns the banner from -welcome-file when set, else -welcome.
func welcomeText(opts options) (string, error) {
	if opts.welcomeFile == "" {
		return opts.welcome, nil
	}

	data, err := os.ReadFile(opts.welcomeFile)
	if err != nil {
		return "", err
	}

	return string(data), nil
}
