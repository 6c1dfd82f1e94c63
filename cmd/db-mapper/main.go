// Package main implements the db-mapper CLI.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	// Database drivers available to configurations.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/electwix/db-mapper/builder"
	"github.com/electwix/db-mapper/config"
	"github.com/electwix/db-mapper/internal/cli"
	"github.com/electwix/db-mapper/internal/logging"
	"github.com/electwix/db-mapper/mapping"
	"github.com/electwix/db-mapper/session"
)

func main() {
	code := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := cli.Parse(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			_, _ = fmt.Fprintln(stdout, err.Error())
			return 0
		}
		_, _ = fmt.Fprintln(stderr, err.Error())
		return 1
	}

	logger := logging.New(logging.Options{
		Verbose: opts.Verbose,
		Writer:  stderr,
	})

	res, err := builder.Load(opts.ConfigPath, builder.LoadOptions{
		Strict: opts.StrictConfig,
		Logger: logger,
	})
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err.Error())
		return 1
	}
	for _, warning := range res.Warnings {
		_, _ = fmt.Fprintln(stderr, "warning: "+warning)
	}

	cfg := res.Config
	if cfg.Environment.DB != nil {
		defer func() { _ = cfg.Environment.DB.Close() }()
	}

	if opts.ListStatements {
		printStatements(stdout, cfg)
		return 0
	}

	if opts.Statement == "" {
		_, _ = fmt.Fprintln(stderr, "a statement id is required (or use --list-statements)")
		return 1
	}
	ms, err := cfg.Statement(opts.Statement)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err.Error())
		return 1
	}

	param, err := parseParams(opts.Params)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err.Error())
		return 1
	}

	sess, err := session.NewFactory(cfg).OpenWith(session.OpenOptions{AutoCommit: true})
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err.Error())
		return 1
	}
	defer func() { _ = sess.Close() }()

	if err := execute(ctx, sess, ms, param, opts, stdout); err != nil {
		_, _ = fmt.Fprintln(stderr, err.Error())
		return 2
	}
	return 0
}

func execute(ctx context.Context, sess *session.Session, ms *mapping.MappedStatement, param any, opts cli.Options, stdout io.Writer) error {
	if ms.Command != mapping.CommandSelect {
		affected, err := sess.Update(ctx, ms.ID, param)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(stdout, "%d row(s) affected\n", affected)
		return nil
	}

	bounds := mapping.DefaultBounds
	bounds.Offset = opts.Offset
	if opts.Limit >= 0 {
		bounds.Limit = opts.Limit
	}
	rows, err := sess.SelectRows(ctx, ms.ID, param, bounds)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(stdout)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("encode row: %w", err)
		}
	}
	return nil
}

func printStatements(w io.Writer, cfg *config.Config) {
	for _, id := range cfg.StatementIDs() {
		ms, err := cfg.Statement(id)
		if err != nil {
			continue
		}
		region := "-"
		if ms.Cache != nil {
			region = ms.Cache.ID()
		}
		_, _ = fmt.Fprintf(w, "%s %s cache: %s\n", id, ms.Command.String(), region)
	}
}

func parseParams(raw string) (any, error) {
	if raw == "" {
		return nil, nil
	}
	var param map[string]any
	if err := json.Unmarshal([]byte(raw), &param); err != nil {
		return nil, fmt.Errorf("parse --params: %w", err)
	}
	return param, nil
}
