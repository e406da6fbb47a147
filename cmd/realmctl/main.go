// Package main provides realmctl, a command-line client for the realm.v1
// gRPC API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/cory-johannsen/realm/internal/config"
	"github.com/cory-johannsen/realm/internal/game/quest"
	"github.com/cory-johannsen/realm/internal/transport/grpcapi"
)

const usage = `usage: realmctl [flags] <command> [args]

commands:
  create <character> <name>
  show <character>
  enter <character> <zone>
  populate <zone>
  monsters <zone>
  items <zone>
  attack <character> <monster-instance>
  collect <character> <item-instance>
  quests <character>
  active <character>
  accept|abandon|complete <character> <quest>
  event <character> <type> <target> [amount]
  watch <zone>

flags:
`

func main() {
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file; read for the server address")
	addr := flag.String("addr", "", "server address (overrides the config file)")
	timeout := flag.Duration("timeout", 10*time.Second, "per-call timeout; watch runs until interrupted")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	target := *addr
	if target == "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("loading config: %v", err)
		}
		target = cfg.GameServer.Addr()
	}

	conn, err := grpcapi.Dial(target)
	if err != nil {
		log.Fatalf("connecting to %s: %v", target, err)
	}
	defer conn.Close()
	client := grpcapi.NewClient(conn)

	if args[0] == "watch" {
		need(args, 2)
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := watch(ctx, client, args[1]); err != nil {
			log.Fatalf("watch: %v", err)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	start := time.Now()
	out, err := run(ctx, client, args)
	if err != nil {
		log.Fatalf("%s: %v", args[0], err)
	}
	emit(out)
	fmt.Fprintf(os.Stderr, "[%s]\n", time.Since(start))
}

func run(ctx context.Context, c *grpcapi.Client, args []string) (any, error) {
	switch cmd := args[0]; cmd {
	case "create":
		need(args, 3)
		return c.CreateCharacter(ctx, args[1], args[2])
	case "show":
		need(args, 2)
		return c.GetCharacter(ctx, args[1])
	case "enter":
		need(args, 3)
		return c.EnterZone(ctx, args[1], args[2])
	case "populate":
		need(args, 2)
		return c.PopulateZone(ctx, args[1])
	case "monsters":
		need(args, 2)
		return c.ListLiveMonsters(ctx, args[1])
	case "items":
		need(args, 2)
		return c.ListLiveItems(ctx, args[1])
	case "attack":
		need(args, 3)
		return c.Attack(ctx, args[1], args[2])
	case "collect":
		need(args, 3)
		return c.CollectItem(ctx, args[1], args[2])
	case "quests":
		need(args, 2)
		return c.ListAvailableQuests(ctx, args[1])
	case "active":
		need(args, 2)
		return c.ListActiveQuests(ctx, args[1])
	case "accept":
		need(args, 3)
		return c.AcceptQuest(ctx, args[1], args[2])
	case "abandon":
		need(args, 3)
		return c.AbandonQuest(ctx, args[1], args[2])
	case "complete":
		need(args, 3)
		return c.CompleteQuest(ctx, args[1], args[2])
	case "event":
		need(args, 4)
		amount := 1
		if len(args) > 4 {
			n, err := strconv.Atoi(args[4])
			if err != nil {
				return nil, fmt.Errorf("amount %q: %w", args[4], err)
			}
			amount = n
		}
		return c.OnGameplayEvent(ctx, args[1], quest.ObjectiveType(args[2]), args[3], amount)
	default:
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
}

func watch(ctx context.Context, c *grpcapi.Client, zoneID string) error {
	stream, err := c.WatchZone(ctx, zoneID)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "watching %s\n", zoneID)
	for {
		ev, err := stream.Recv()
		if errors.Is(err, io.EOF) || ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}
		emit(ev)
	}
}

func need(args []string, n int) {
	if len(args) < n {
		flag.Usage()
		os.Exit(1)
	}
}

func emit(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatalf("encoding output: %v", err)
	}
}
