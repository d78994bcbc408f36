// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command jsonnode is one node of a small JSON mesh: it publishes a status
// document on its own endpoint and prints the documents of its peers.
//
//	jsonnode -node C -peers A,B
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	_ "github.com/joho/godotenv/autoload"
	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"

	"github.com/someonegg/msgpubsub"
)

var log zerolog.Logger

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Stamp}
	log = zerolog.New(output).With().Timestamp().Logger()
	slog.SetDefault(slog.New(
		zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: slog.LevelInfo}),
	))
}

// Status is the document exchanged by the nodes.
type Status struct {
	Name    string    `json:"name"`
	Message string    `json:"message"`
	Count   int       `json:"count"`
	Time    time.Time `json:"time"`
}

func endpoint(node string) string {
	return node + "_publisher"
}

type printer struct {
	peer string
}

func (p printer) Process(ctx context.Context, topic string, payload []byte) {
	var st Status
	if err := json.Unmarshal(payload, &st); err != nil {
		slog.Warn("bad status document", slog.String("peer", p.peer), slog.String("error", err.Error()))
		return
	}
	slog.Info("status received",
		slog.String("peer", p.peer),
		slog.String("topic", topic),
		slog.String("name", st.Name),
		slog.String("message", st.Message),
		slog.Int("count", st.Count))
}

func main() {
	var (
		node      string
		peers     string
		transport string
		every     time.Duration
	)
	flag.StringVar(&node, "node", "C", "node name")
	flag.StringVar(&peers, "peers", "A,B", "comma separated peer node names")
	flag.StringVar(&transport, "transport", "ipc", "ipc or inproc")
	flag.DurationVar(&every, "every", 3*time.Second, "status interval")
	flag.Parse()

	if err := run(node, strings.Split(peers, ","), transport, every); err != nil {
		log.Error().Err(err).Msg("jsonnode failed")
		os.Exit(1)
	}
}

func run(node string, peers []string, transport string, every time.Duration) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	t, err := msgpubsub.ParseTransport(transport)
	if err != nil {
		return err
	}

	mctx, err := msgpubsub.NewContext()
	if err != nil {
		return err
	}
	defer mctx.Close()

	pub, err := mctx.NewPublisher(endpoint(node), t)
	if err != nil {
		return err
	}
	defer pub.Close()

	for _, peer := range peers {
		peer = strings.TrimSpace(peer)
		if peer == "" || peer == node {
			continue
		}
		sub, err := mctx.NewSubscriber(endpoint(peer), t)
		if err != nil {
			return err
		}
		defer sub.Close()

		// only the documents addressed to this node
		sub.Subscribe(peer + node)
		sub.StartLoop(printer{peer: peer})
	}

	tick := time.NewTicker(every)
	defer tick.Stop()
	counts := make(map[string]int)
	for {
		select {
		case <-ctx.Done():
			slog.Info("stopping")
			return nil
		case <-tick.C:
		}

		for _, peer := range peers {
			peer = strings.TrimSpace(peer)
			if peer == "" || peer == node {
				continue
			}
			st := Status{
				Name:    node,
				Message: node + " to " + peer,
				Count:   counts[peer],
				Time:    time.Now(),
			}
			b, err := json.Marshal(st)
			if err != nil {
				return err
			}
			pub.Publish(node+peer, b)
			counts[peer]++
		}
	}
}
