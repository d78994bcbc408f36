// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command pubsubcat publishes lines to an endpoint, or prints the messages
// received from one.
//
//	pubsubcat pub -name test_channel -topic app_a_topic < lines.txt
//	pubsubcat pub -name test_channel -topic app_a_topic -every 1s hello
//	pubsubcat sub -name test_channel app_a_topic app_b_topic
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"

	"github.com/someonegg/msgpubsub"
)

var log zerolog.Logger

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Stamp}
	log = zerolog.New(output).With().Timestamp().Logger()
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s pub|sub [flags] [args]\n", os.Args[0])
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "pub":
		err = runPub(ctx, os.Args[2:])
	case "sub":
		err = runSub(ctx, os.Args[2:])
	default:
		usage()
	}
	if err != nil {
		log.Error().Err(err).Msg("pubsubcat failed")
		os.Exit(1)
	}
}

type commonFlags struct {
	name      string
	transport string
	verbose   bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.name, "name", "test_channel", "endpoint name")
	fs.StringVar(&c.transport, "transport", "ipc", "ipc or inproc")
	fs.BoolVar(&c.verbose, "v", false, "debug logging")
}

func (c *commonFlags) options() []msgpubsub.Option {
	level := slog.LevelInfo
	if c.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: level}))
	return []msgpubsub.Option{msgpubsub.WithLogger(logger)}
}

func runPub(ctx context.Context, args []string) error {
	var (
		c     commonFlags
		topic string
		every time.Duration
		wait  int
	)
	fs := flag.NewFlagSet("pub", flag.ExitOnError)
	c.register(fs)
	fs.StringVar(&topic, "topic", "app_a_topic", "message topic")
	fs.DurationVar(&every, "every", time.Second, "repeat interval of the argument messages")
	fs.IntVar(&wait, "wait", 0, "wait for this many subscribers before publishing")
	fs.Parse(args)

	t, err := msgpubsub.ParseTransport(c.transport)
	if err != nil {
		return err
	}
	pub, err := msgpubsub.NewPublisher(c.name, t, c.options()...)
	if err != nil {
		return err
	}
	defer pub.Close()
	log.Info().Str("endpoint", pub.Address()).Msg("publisher bound")

	for pub.Peers() < wait {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(10 * time.Millisecond):
		}
	}

	if fs.NArg() == 0 {
		return pubLines(ctx, pub, topic)
	}

	tick := time.NewTicker(every)
	defer tick.Stop()
	for count := 0; ; count++ {
		for _, m := range fs.Args() {
			msg := fmt.Sprintf("%s #%d", m, count)
			pub.PublishString(topic, msg)
			log.Info().Str("topic", topic).Msg(msg)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
		}
	}
}

func pubLines(ctx context.Context, pub *msgpubsub.Publisher, topic string) error {
	lines := make(chan string)
	errC := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
		errC <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				return <-errC
			}
			pub.PublishString(topic, l)
		}
	}
}

func runSub(ctx context.Context, args []string) error {
	var (
		c     commonFlags
		count int
	)
	fs := flag.NewFlagSet("sub", flag.ExitOnError)
	c.register(fs)
	fs.IntVar(&count, "n", 0, "exit after n messages, 0 means never")
	fs.Parse(args)

	t, err := msgpubsub.ParseTransport(c.transport)
	if err != nil {
		return err
	}
	sub, err := msgpubsub.NewSubscriber(c.name, t, c.options()...)
	if err != nil {
		return err
	}
	defer sub.Close()
	sub.Subscribe(fs.Args()...)
	log.Info().Str("endpoint", sub.Address()).Strs("filters", sub.Filters()).Msg("subscriber connecting")

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	for n := 0; count == 0 || n < count; n++ {
		m, err := sub.ReceiveContext(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		fmt.Fprintf(out, "%s: %s\n", m.Topic, m.Payload)
		out.Flush()
	}
	return nil
}
