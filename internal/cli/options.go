package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

type Options struct {
	ConfigPath     string
	Statement      string
	Params         string
	Offset         int
	Limit          int
	ListStatements bool
	StrictConfig   bool
	Verbose        bool
	Args           []string
}

func Parse(args []string) (Options, error) {
	const defaultConfig = "db-mapper.toml"

	opts := Options{
		ConfigPath: defaultConfig,
		Limit:      -1,
	}

	fs := flag.NewFlagSet("db-mapper", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&opts.ConfigPath, "config", opts.ConfigPath, "Path to configuration file")
	fs.StringVar(&opts.ConfigPath, "c", opts.ConfigPath, "Path to configuration file")
	fs.StringVar(&opts.Statement, "statement", "", "Mapped statement id to execute")
	fs.StringVar(&opts.Statement, "s", "", "Mapped statement id to execute")
	fs.StringVar(&opts.Params, "params", "", "Statement parameters as a JSON object")
	fs.IntVar(&opts.Offset, "offset", 0, "Rows to skip before the first returned row")
	fs.IntVar(&opts.Limit, "limit", opts.Limit, "Maximum rows to return; negative means no limit")
	fs.BoolVar(&opts.ListStatements, "list-statements", false, "List configured statements without executing")
	fs.BoolVar(&opts.StrictConfig, "strict-config", false, "Treat configuration warnings as errors")
	fs.BoolVar(&opts.Verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.Verbose, "v", false, "Enable verbose logging")

	if err := fs.Parse(args); err != nil {
		usage := Usage(fs)
		if errors.Is(err, flag.ErrHelp) {
			return Options{}, fmt.Errorf("%w\n\n%s", err, usage)
		}
		return Options{}, fmt.Errorf("%w\n\n%s", err, usage)
	}

	opts.Args = fs.Args()
	if opts.Offset < 0 {
		return Options{}, fmt.Errorf("offset must not be negative\n\n%s", Usage(fs))
	}
	return opts, nil
}

func Usage(fs *flag.FlagSet) string {
	if fs == nil {
		return ""
	}
	var buf strings.Builder
	fmt.Fprintf(&buf, "Usage of %s:\n", fs.Name())
	out := fs.Output()
	fs.SetOutput(&buf)
	fs.PrintDefaults()
	fs.SetOutput(out)
	return buf.String()
}
