package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/nsouzarj/craweb/internal/app"
	"github.com/nsouzarj/craweb/internal/config"
	apperrors "github.com/nsouzarj/craweb/pkg/errors"
	"github.com/nsouzarj/craweb/pkg/httpclient"
	"github.com/nsouzarj/craweb/pkg/logger"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

var errShowUsage = errors.New("show usage")

type cliOptions struct {
	jsonOutput bool
}

func parseArgs(args []string) (cliOptions, string, []string, error) {
	var opts cliOptions

	idx := 0
	for idx < len(args) {
		arg := args[idx]
		if !strings.HasPrefix(arg, "-") {
			break
		}
		switch arg {
		case "--help", "-h":
			return opts, "", nil, errShowUsage
		case "--json":
			opts.jsonOutput = true
			idx++
		default:
			return opts, "", nil, fmt.Errorf("unknown flag: %s", arg)
		}
	}

	if idx >= len(args) {
		return opts, "", nil, errShowUsage
	}
	return opts, args[idx], args[idx+1:], nil
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, command, rest, err := parseArgs(args)
	if errors.Is(err, errShowUsage) {
		printUsage(stdout)
		if len(args) == 0 {
			return 1
		}
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		printUsage(stderr)
		return 1
	}

	switch command {
	case "version":
		fmt.Fprintf(stdout, "cractl %s (commit: %s, built: %s)\n", version, commit, date)
		return 0
	case "help":
		printUsage(stdout)
		return 0
	}

	handler, ok := commands[command]
	if !ok {
		fmt.Fprintf(stderr, "error: unknown command: %s\n", command)
		printUsage(stderr)
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	log := logger.NewWithWriter("cractl", cfg.LogLevel, stderr)

	con := &console{out: stdout, errOut: stderr}
	a, err := app.NewApp(cfg, log, con, con)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	err = handler(ctx, &env{app: a, out: stdout, errOut: stderr, opts: opts}, rest)
	if closeErr := a.Close(); closeErr != nil {
		fmt.Fprintf(stderr, "warning: %v\n", closeErr)
	}
	if err != nil {
		// A backend failure was already shown as a notification.
		if !con.notified() {
			fmt.Fprintf(stderr, "error: %s\n", errorText(err))
		}
		return 1
	}
	return 0
}

func errorText(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// console is the terminal front end: it shows views on stdout and
// notifications on stderr.
type console struct {
	out    io.Writer
	errOut io.Writer

	mu    sync.Mutex
	count int
}

func (c *console) Navigate(_ context.Context, path string) {
	fmt.Fprintf(c.out, "-> %s\n", path)
}

func (c *console) Notify(_ context.Context, n httpclient.Notification) {
	c.mu.Lock()
	c.count++
	c.mu.Unlock()
	fmt.Fprintf(c.errOut, "[%s] %s\n", n.Kind, n.Message)
}

func (c *console) notified() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count > 0
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Usage: cractl [--json] <command> [flags]

Commands:
  login -u <login> [-p <password>]
                            Sign in (password also read from CRA_PASSWORD)
  logout                    Sign out and forget the stored session
  whoami                    Fetch the signed-in user from the backend
  refresh                   Exchange the refresh token for a new token pair
  validate                  Ask the backend whether the access token is valid
  register -login <login> -password <pw> -name <name> -type <admin|lawyer|correspondent>
           [-email <addr>] [-email2 <addr>] [-email3 <addr>] [-correspondent <id>]
                            Create a user account (administrators only)
  status                    Show the stored session and permissions
  open <path>               Navigate to a view, running its guard
  routes                    List views and whether the session may open them
  doctor                    Check the API, the session storage and the session
  version                   Print version information

Environment:
  CRA_API_URL, CRA_SESSION_BACKEND (file|redis|memory), CRA_SESSION_FILE,
  REDIS_HOST, REDIS_PORT, LOG_LEVEL, CRA_METRICS_FILE, OTEL_ENABLED
`)
}
