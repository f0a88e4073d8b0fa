// Package cli implements the rcoll command line tool for inspecting and
// editing Redis-backed collections.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ggoodman/redis-collections-go/backend"
	"github.com/ggoodman/redis-collections-go/backend/redisbackend"
	"github.com/ggoodman/redis-collections-go/collections"
	"github.com/ggoodman/redis-collections-go/internal/logctx"
	"github.com/ggoodman/redis-collections-go/registry"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version of the rcoll tool.
const Version = "0.1.0"

// Option configures the root command.
type Option func(*app)

// WithBackendFactory replaces the Redis connection built from flags and the
// environment. Tests use it to run commands against an in-memory backend.
func WithBackendFactory(f registry.Factory) Option {
	return func(a *app) { a.factory = f }
}

// app holds the state shared by every subcommand of one invocation.
type app struct {
	factory registry.Factory
	reg     *registry.Registry
	log     *slog.Logger

	host      string
	port      int
	db        int
	logLevel  string
	namespace string
}

// NewRootCommand builds the rcoll command tree.
func NewRootCommand(opts ...Option) *cobra.Command {
	a := &app{}
	for _, opt := range opts {
		opt(a)
	}

	root := &cobra.Command{
		Use:   "rcoll",
		Short: "inspect and edit Redis-backed collections",
		Long: fmt.Sprintf(`rcoll (v%s)

Reads and writes the lists and sets managed by the collections package, and
finds or removes anonymous collections left behind by programs.

Connection settings come from PYREDIS_URL, PYREDIS_HOST, PYREDIS_PORT,
PYREDIS_PASSWORD and PYREDIS_DB (also read from .env and .env.local), and
can be overridden with flags.`, Version),
		SilenceUsage:       true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.host, "host", "", "Redis host (overrides PYREDIS_HOST)")
	flags.IntVar(&a.port, "port", 0, "Redis port (overrides PYREDIS_PORT)")
	flags.IntVar(&a.db, "db", 0, "Redis database index (overrides PYREDIS_DB)")
	flags.StringVar(&a.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	flags.StringVar(&a.namespace, "namespace", collections.DefaultAnonymousNamespace, "namespace of anonymous collections")

	root.AddCommand(
		newAnonCommand(a),
		newListCommand(a),
		newSetCommand(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number of rcoll",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "rcoll v%s\n", Version)
			},
		},
	)

	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", a.logLevel, err)
	}
	a.log = slog.New(logctx.Handler{Handler: slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})})

	factory := a.factory
	if factory == nil {
		// Missing env files are fine.
		_ = godotenv.Load(".env")
		_ = godotenv.Load(".env.local")

		cfg, err := redisbackend.ConfigFromEnv()
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("host") || flags.Changed("port") || flags.Changed("db") {
			// A URL would shadow the discrete fields the flags set.
			if cfg, err = cfg.Expand(); err != nil {
				return err
			}
		}
		if flags.Changed("host") {
			cfg.Host = a.host
		}
		if flags.Changed("port") {
			cfg.Port = a.port
		}
		if flags.Changed("db") {
			cfg.DB = a.db
		}
		factory = func(ctx context.Context) (backend.Backend, error) {
			return redisbackend.New(ctx, cfg)
		}
	}

	// The registry dials lazily, so commands that never touch the store
	// (version, help) do not need a reachable server.
	a.reg = registry.New(registry.WithDefaultFactory(factory), registry.WithLogger(a.log))
	return nil
}

func (a *app) teardown(_ *cobra.Command, _ []string) error {
	if a.reg == nil {
		return nil
	}
	return a.reg.Close()
}

func (a *app) backend(ctx context.Context) (backend.Backend, error) {
	return a.reg.Default(ctx)
}

func (a *app) list(ctx context.Context, key string) (*collections.List, error) {
	return collections.NewList(ctx, a.reg, collections.WithName(key), collections.WithLogger(a.log))
}

func (a *app) set(ctx context.Context, key string) (*collections.Set, error) {
	return collections.NewSet(ctx, a.reg, collections.WithName(key), collections.WithLogger(a.log))
}

// printReply writes a forwarded command reply in a redis-cli like layout.
func printReply(w io.Writer, reply any) {
	switch v := reply.(type) {
	case nil:
		fmt.Fprintln(w, "(nil)")
	case []string:
		if len(v) == 0 {
			fmt.Fprintln(w, "(empty)")
			return
		}
		for i, s := range v {
			fmt.Fprintf(w, "%d) %s\n", i+1, s)
		}
	case int64:
		fmt.Fprintf(w, "(integer) %d\n", v)
	case bool:
		if v {
			fmt.Fprintln(w, "(integer) 1")
		} else {
			fmt.Fprintln(w, "(integer) 0")
		}
	default:
		fmt.Fprintln(w, v)
	}
}

func printLines(w io.Writer, values []string) {
	if len(values) == 0 {
		return
	}
	fmt.Fprintln(w, strings.Join(values, "\n"))
}

// Execute runs the root command against os.Args.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}
