// hirograph is a small CLI for poking at a HIRO platform instance:
// version probing, token inspection, vertex lookup, and event tailing.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/hirograph"
	"github.com/nerrad567/hirograph/auth"
	"github.com/nerrad567/hirograph/config"
	"github.com/nerrad567/hirograph/logging"
	"github.com/nerrad567/hirograph/ws"
)

// Version information - set at build time via ldflags
var (
	version = "dev"
	commit  = "unknown"
)

const defaultConfigPath = "hirograph.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual CLI logic, separated from main for testability.
func run(ctx context.Context, args []string, out *os.File) error {
	flags := flag.NewFlagSet("hirograph", flag.ContinueOnError)
	configPath := flags.String("config", configPathDefault(), "path to config file")
	profile := flags.String("profile", "", "profile name (default: config's default profile)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() == 0 {
		return fmt.Errorf("usage: hirograph [flags] <version|token|vertex <id>|events [scope]>")
	}

	cmd := flags.Arg(0)

	// Token decoding needs no platform connection.
	if cmd == "token" && flags.NArg() > 1 {
		return decodeToken(out, flags.Arg(1))
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := logging.New(cfg.Logging, version)
	logger.Debug("starting", "version", version, "commit", commit)

	conn, err := hirograph.Connect(cfg, *profile, logger)
	if err != nil {
		return err
	}
	defer conn.Close() //nolint:errcheck // process exit follows

	switch cmd {
	case "version":
		return printVersions(ctx, conn, out)
	case "token":
		return printOwnToken(ctx, conn, out)
	case "vertex":
		if flags.NArg() < 2 {
			return fmt.Errorf("usage: hirograph vertex <id>")
		}
		return printVertex(ctx, conn, out, flags.Arg(1))
	case "events":
		scope := ""
		if flags.NArg() > 1 {
			scope = flags.Arg(1)
		}
		return tailEvents(ctx, conn, out, scope, logger)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func configPathDefault() string {
	if v := os.Getenv("HIROGRAPH_CONFIG"); v != "" {
		return v
	}
	return defaultConfigPath
}

// printVersions fetches the platform version document and lists each API.
func printVersions(ctx context.Context, conn *hirograph.Connection, out *os.File) error {
	for _, name := range []string{"auth", "graph", "app", "events-ws", "action-ws"} {
		entry, err := conn.Versions.Entry(ctx, name)
		if err != nil {
			fmt.Fprintf(out, "%-12s (not offered)\n", name)
			continue
		}
		fmt.Fprintf(out, "%-12s %-8s %s\n", name, entry.Version, entry.Endpoint)
	}
	return nil
}

// decodeToken prints the claims of a raw token without verification.
func decodeToken(out *os.File, raw string) error {
	claims, err := auth.DecodeToken(raw)
	if err != nil {
		return err
	}
	return printJSON(out, claims)
}

// printOwnToken acquires a token via the configured handler and prints its
// claims.
func printOwnToken(ctx context.Context, conn *hirograph.Connection, out *os.File) error {
	raw, err := conn.Tokens.Token(ctx)
	if err != nil {
		return err
	}
	claims, err := auth.DecodeToken(raw)
	if err != nil {
		return err
	}
	return printJSON(out, claims)
}

func printVertex(ctx context.Context, conn *hirograph.Connection, out *os.File, id string) error {
	v, err := conn.Graph.GetVertex(ctx, id)
	if err != nil {
		return err
	}
	return printJSON(out, v)
}

// tailEvents opens an event session and prints envelopes until interrupted.
func tailEvents(ctx context.Context, conn *hirograph.Connection, out *os.File, scope string, logger *logging.Logger) error {
	errCh := make(chan error, 1)
	session, events, err := conn.NewEventSession(ctx,
		func(ev ws.Event) {
			fmt.Fprintf(out, "%s %-6s %s\n", ev.Timestamp.Format("15:04:05"), ev.Type, ev.ID)
			if len(ev.Body) > 0 {
				printJSON(out, ev.Body) //nolint:errcheck // best-effort display
			}
		},
		func(err error) {
			select {
			case errCh <- err:
			default:
			}
		},
	)
	if err != nil {
		return err
	}

	if err := session.Start(ctx); err != nil {
		return err
	}
	defer session.Stop()

	if scope != "" {
		if err := events.Subscribe(scope); err != nil {
			return err
		}
	}
	logger.Info("tailing events", "scope", scope)

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return fmt.Errorf("event session: %w", err)
	}
}

func printJSON(out *os.File, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
