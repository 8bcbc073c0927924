package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/billbatista/brofinance/api"
	"github.com/billbatista/brofinance/config"
	"github.com/billbatista/brofinance/dashboard"
	"github.com/billbatista/brofinance/eventlogger"
	"github.com/billbatista/brofinance/middleware"
	"github.com/billbatista/brofinance/session"
	_ "github.com/lib/pq"
)

var errNotLoggedIn = errors.New("not logged in, run brofinance login first")

type command struct {
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"register":        {"-username -email [-password]", runRegister},
	"login":           {"-email [-password]", runLogin},
	"google":          {"-code", runGoogle},
	"set-password":    {"-username [-password -confirm]", runSetPassword},
	"forgot-password": {"-email", runForgotPassword},
	"reset-password":  {"-user -token [-password -confirm]", runResetPassword},
	"logout":          {"", runLogout},
	"whoami":          {"", runWhoami},
	"health":          {"", runHealth},
	"list":            {"[-page -limit -sort -order -tipo -usuario -sub -tab -all]", runList},
	"summary":         {"", runSummary},
	"pending":         {"", runPending},
	"create":          {"-tipo -total [-desc -sub -with who=amount,... -equal]", runCreate},
	"edit":            {"<id> [-desc -total -tipo]", runEdit},
	"accept":          {"<id>", transitionCommand(actionAccept)},
	"reject":          {"<id>", transitionCommand(actionReject)},
	"pay":             {"<id>", transitionCommand(actionPay)},
	"confirm":         {"<id>", transitionCommand(actionConfirm)},
	"reject-payment":  {"<id>", transitionCommand(actionRejectPayment)},
	"settle":          {"-creditor [-notify]", runSettle},
	"friends":         {"[list | search <q> | add <user> | accept <user> | reject <user> | remove <user>]", runFriends},
	"profile":         {"[-user <id>] [-username -cbu -show-cbu -show-email -avatar <file>]", runProfile},
	"report":          {"[-period 7d|30d|90d -out report.pdf]", runReport},
	"activity":        {"-type <event type>", runActivity},
	"fake-api":        {"[-addr :4000]", runFakeAPI},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		printErrorAndExit("loading config", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}
	name, args := os.Args[1], os.Args[2:]
	if name == "help" || name == "-h" || name == "--help" {
		usage(os.Stdout)
		return
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		usage(os.Stderr)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		printErrorAndExit("starting", err)
	}
	err = cmd.run(ctx, a, args)
	a.close()
	if err != nil {
		printErrorAndExit(name, err)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: brofinance <command> [flags]")
	fmt.Fprintln(w)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-16s %s\n", name, commands[name].usage)
	}
}

// app holds what every command shares: the session, the API client and the
// activity log.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	out    io.Writer
	in     *bufio.Reader

	db     *sql.DB
	events eventlogger.EventLogger
	worker *eventlogger.Worker
	tokens *session.Tokens
	client *api.Client
	store  *session.Store
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, out: os.Stdout, in: bufio.NewReader(os.Stdin)}

	var storage session.Storage
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("database connection: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("pinging database: %w", err)
		}
		repo := session.NewRepository(db, cfg.Profile)
		if err := repo.CreateTable(ctx); err != nil {
			db.Close()
			return nil, err
		}
		sqlEvents := eventlogger.NewSqlEventLogger(db)
		if err := sqlEvents.CreateTable(ctx); err != nil {
			db.Close()
			return nil, err
		}
		a.db, storage, a.events = db, repo, sqlEvents
	} else {
		storage = session.NewFileStorage(cfg.StateFile)
		a.events = eventlogger.NewSlogEventLogger(logger)
	}

	a.worker = eventlogger.NewWorker(a.events, 100)
	a.worker.Start()

	a.tokens = session.NewTokens(storage)
	a.client = api.New(cfg.APIURL, api.WithHTTPClient(&http.Client{
		Timeout:   cfg.HTTPTimeout,
		Transport: middleware.Chain(nil, middleware.Logger(logger), middleware.Auth(a.tokens)),
	}))
	a.store = session.NewStore(a.client, a.tokens,
		session.WithRecorder(a.worker),
		session.WithLogger(logger),
	)
	return a, nil
}

func (a *app) close() {
	a.worker.Shutdown()
	if a.db != nil {
		a.db.Close()
	}
}

// requireSession verifies the stored session with the server.
func (a *app) requireSession(ctx context.Context) error {
	state, err := a.store.Bootstrap(ctx)
	if err != nil {
		return err
	}
	if state != session.StatePresent {
		return errNotLoggedIn
	}
	return nil
}

// dashboard loads the expense list for the logged in user.
func (a *app) dashboard(ctx context.Context, params api.ListParams) (*dashboard.Dashboard, error) {
	if err := a.requireSession(ctx); err != nil {
		return nil, err
	}
	d := dashboard.New(a.client, a.store,
		dashboard.WithRecorder(a.worker),
		dashboard.WithLogger(a.logger),
	)
	if err := d.Load(ctx, params); err != nil {
		return nil, err
	}
	return d, nil
}

func printErrorAndExit(msg string, e error) {
	slog.Debug(msg, "error", e)
	fmt.Fprintln(os.Stderr, api.Message(e))
	os.Exit(1)
}
