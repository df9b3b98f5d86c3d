// agoractl is the operator command line: seed local accounts, trigger jobs
// and inspect the queue. It talks to the same Postgres and Redis the server
// uses; it never goes through the HTTP surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/agora-civic/agora/cmd/agoractl/cli"
	"github.com/agora-civic/agora/internal/app"
	"github.com/agora-civic/agora/internal/identity"
	"github.com/agora-civic/agora/internal/platform/db"
	"github.com/agora-civic/agora/jobs"
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage: agoractl <command> [flags]

commands:
  seed-account   create a local account (-email, -password, -role, -legacy, -json)
  trigger-job    enqueue a job by name (-name audit:purge|authz:anomaly_digest|petitions:digest)
  queue-stats    print default queue counters`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(2)
	}
	ctx := context.Background()

	switch os.Args[1] {
	case "seed-account":
		os.Exit(seedAccount(ctx, cfg, os.Args[2:]))
	case "trigger-job":
		os.Exit(triggerJob(ctx, cfg, os.Args[2:]))
	case "queue-stats":
		os.Exit(queueStats(ctx, cfg))
	default:
		usage()
		os.Exit(1)
	}
}

func seedAccount(ctx context.Context, cfg *app.Config, args []string) int {
	fs := flag.NewFlagSet("seed-account", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password (min 8 chars)")
	role := fs.String("role", "USER", "role label, any accepted spelling")
	legacy := fs.Bool("legacy", false, "set the legacy moderator flag")
	asJSON := fs.Bool("json", false, "emit a JSON summary")
	_ = fs.Parse(args)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect postgres: %v\n", err)
		return 2
	}
	defer pool.Close()

	accounts, err := cli.NewAccountsCLI(identity.NewLocalProvider(pool))
	if err != nil {
		fmt.Fprintf(os.Stderr, "init accounts cli: %v\n", err)
		return 2
	}
	return accounts.SeedCommand(ctx, cli.SeedOptions{
		Email:           *email,
		Password:        *password,
		Role:            *role,
		LegacyModerator: *legacy,
		JSONOutput:      *asJSON,
		Stdout:          os.Stdout,
		Stderr:          os.Stderr,
	})
}

func triggerJob(ctx context.Context, cfg *app.Config, args []string) int {
	fs := flag.NewFlagSet("trigger-job", flag.ExitOnError)
	name := fs.String("name", "", "task type to enqueue")
	_ = fs.Parse(args)

	jc, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init jobs cli: %v\n", err)
		return 2
	}
	defer func() { _ = jc.Close() }()

	info, err := jc.Trigger(ctx, *name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "trigger: %v\n", err)
		return 1
	}
	fmt.Printf("enqueued %s id=%s queue=%s\n", *name, info.ID, info.Queue)
	return 0
}

func queueStats(ctx context.Context, cfg *app.Config) int {
	jc, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init jobs cli: %v\n", err)
		return 2
	}
	defer func() { _ = jc.Close() }()

	stats, err := jc.InspectQueue(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "inspect %s: %v\n", jobs.QueueDefault, err)
		return 1
	}
	fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
		stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
	return 0
}
