package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/aryan0dhankhar/eventcrm/internal/app"
	"github.com/aryan0dhankhar/eventcrm/internal/featureflags"
	"github.com/aryan0dhankhar/eventcrm/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/eventcrm/internal/session"
	"github.com/aryan0dhankhar/eventcrm/pkg/config"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// errUsage marks a command-line mistake; the command's usage is printed with it.
var errUsage = errors.New("usage")

func usageErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

// cli is one invocation: configuration, output streams and the lazily opened CRM.
type cli struct {
	cfg       *config.Config
	log       *slog.Logger
	out       io.Writer
	errOut    io.Writer
	session   *session.FileStore
	devErrors bool
	// readPassword prompts on the terminal. Replaced in tests.
	readPassword func(prompt string) (string, error)

	crm *app.App
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(exitError)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := &cli{
		cfg:          cfg,
		log:          logger.New(os.Stderr, cfg.LogLevel, cfg.LogFormat),
		out:          os.Stdout,
		errOut:       os.Stderr,
		session:      session.NewFileStore(cfg.SessionFile),
		devErrors:    featureflags.Enabled(featureflags.DevErrors),
		readPassword: terminalPassword,
	}
	code := c.run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func (c *cli) run(ctx context.Context, args []string) int {
	defer c.close()

	if len(args) == 0 {
		printUsage(c.errOut)
		return exitUsage
	}

	cmd, rest := args[0], args[1:]
	var err error
	switch cmd {
	case "init":
		err = c.initCRM(ctx, rest)
	case "login":
		err = c.login(ctx, rest)
	case "logout":
		err = c.logout(ctx, rest)
	case "whoami":
		err = c.whoami(rest)
	case "user", "users":
		err = c.userCommand(ctx, rest)
	case "client", "clients":
		err = c.clientCommand(ctx, rest)
	case "contract", "contracts":
		err = c.contractCommand(ctx, rest)
	case "event", "events":
		err = c.eventCommand(ctx, rest)
	case "help", "-h", "--help":
		printUsage(c.out)
		return exitOK
	default:
		fmt.Fprintf(c.errOut, "unknown command: %s\n", cmd)
		printUsage(c.errOut)
		return exitUsage
	}
	return c.report(err)
}

// report prints err for a human and picks the exit code.
func (c *cli) report(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, pflag.ErrHelp):
		return exitOK
	case errors.Is(err, errUsage):
		fmt.Fprintf(c.errOut, "Error: %s\n", strings.TrimPrefix(err.Error(), errUsage.Error()+": "))
		return exitUsage
	}
	fmt.Fprintf(c.errOut, "Error: %s\n", describe(err))
	if c.devErrors {
		fmt.Fprintf(c.errOut, "  detail: %v\n", err)
	}
	return exitError
}

// open connects to the store on first use.
func (c *cli) open(ctx context.Context) (*app.App, error) {
	if c.crm != nil {
		return c.crm, nil
	}
	crm, err := app.Open(ctx, c.cfg, c.log)
	if err != nil {
		return nil, err
	}
	c.crm = crm
	return crm, nil
}

func (c *cli) close() {
	if c.crm != nil {
		if err := c.crm.Close(); err != nil {
			c.log.Warn("failed to close store", slog.String("error", err.Error()))
		}
		c.crm = nil
	}
}

// token returns the saved session token. A missing session is passed on as an
// empty token and rejected by the services.
func (c *cli) token() string {
	tok, _ := c.session.Load()
	return tok
}

// newFlagSet builds a pflag set whose errors come back to run.
func (c *cli) newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(c.errOut)
	fs.SortFlags = false
	return fs
}

// parseFlags reports flag mistakes as usage errors. pflag has already printed them with the defaults.
func parseFlags(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return usageErr("%v", err)
	}
	return nil
}

func terminalPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", usageErr("no terminal available for the password prompt (use --password-file)")
	}
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(raw), nil
}

// password reads from file when given, else prompts.
func (c *cli) password(file, prompt string) (string, error) {
	if file == "" || file == "-" {
		return c.readPassword(prompt)
	}
	raw, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("read password file: %w", err)
	}
	pw := strings.TrimRight(string(raw), "\r\n")
	if pw == "" {
		return "", usageErr("password file %s is empty", file)
	}
	return pw, nil
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `eventcrm - customer relationship management for event organisers

Usage:
  eventcrm <command> [arguments] [flags]

Session:
  init      Create departments and the first management account
  login     Log in and save the session token (login <email>)
  logout    Revoke and forget the session token
  whoami    Show the identity stored in the session token

Records:
  user      list | get <id> | create | update <id> | delete <id>
  client    list | get <id> | create | update <id> | delete <id>
  contract  list | get <id> | create | update <id> | delete <id>
  event     list | get <id> | create | update <id> | assign <id> | delete <id>

Run "eventcrm <command> --help" for the flags of a command.

Environment:
  DATABASE_URL   postgres:// URL or SQLite path (default ~/.eventcrm/crm.db)
  JWT_SECRET     HMAC signing secret (required for HS* algorithms)
  SESSION_FILE   session token file (default ~/.eventcrm/session.json)
  REDIS_URL      shared revocation list (optional)
  EVENTCRM_CONFIG  optional YAML configuration file
`)
}
