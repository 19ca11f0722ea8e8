package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/blockedby/kandra/internal/config"
	"github.com/blockedby/kandra/internal/logger"
	"github.com/blockedby/kandra/internal/notify"
	"github.com/blockedby/kandra/internal/store"
)

type command struct {
	usage string
	run   func(ctx context.Context, app *app, args []string) error
}

var commands = map[string]command{
	"login":        {"login --email E --password P", runLogin},
	"register":     {"register --email E --password P [--name N] [--role candidate|company]", runRegister},
	"logout":       {"logout", runLogout},
	"whoami":       {"whoami", runWhoami},
	"jobs":         {"jobs [--q TEXT] [--category C] [--type T,...] [--level L,...] [--salary-min K] [--salary-max K] [--salary O,...] [--proposals B] [--more N]", runJobs},
	"job":          {"job <id>", runJob},
	"bookmark":     {"bookmark <id>", runBookmark},
	"bookmarks":    {"bookmarks", runBookmarks},
	"apply":        {"apply <job-id> --resume FILE (--cover TEXT | --cover-file FILE) [--motivation TEXT] [--portfolio FILE] [--portfolio-url URL] [--linkedin-url URL]", runApply},
	"applications": {"applications", runApplications},
	"application":  {"application <id>", runApplication},
	"status":       {"status <application-id> <pending|in_review|accepted|rejected>", runStatus},
	"offers":       {"offers", runOffers},
	"applicants":   {"applicants <job-id>", runApplicants},
	"watch":        {"watch", runWatch},
	"serve":        {"serve", runServe},
}

var order = []string{
	"login", "register", "logout", "whoami",
	"jobs", "job", "bookmark", "bookmarks",
	"apply", "applications", "application", "status",
	"offers", "applicants",
	"watch", "serve",
}

// app holds what every command needs.
type app struct {
	cfg   *config.Config
	store *store.Store
	log   *logger.Logger
}

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() == 0 {
		printUsage()
		os.Exit(2)
	}

	name := flag.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", name)
		printUsage()
		os.Exit(2)
	}

	// 1. Load config
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	log := logger.Get()

	// 3. Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 4. Build the store and restore the previous login
	st, err := store.New(ctx, cfg, store.Options{
		Notifiers: []notify.Notifier{notify.NewWriterNotifier(os.Stderr)},
		Log:       log,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	if _, err := st.Restore(ctx); err != nil {
		log.Debug().Err(err).Msg("no session restored")
	}

	// 5. Run
	err = cmd.run(ctx, &app{cfg: cfg, store: st, log: log}, flag.Args()[1:])
	if errors.Is(err, errUsage) {
		fmt.Fprintf(os.Stderr, "usage: kandra %s\n", cmd.usage)
		st.Close()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		st.Close()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "kandra: job board client")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "commands:")
	for _, name := range order {
		fmt.Fprintf(os.Stderr, "  %s\n", commands[name].usage)
	}
}
