// spanconv converts content between the formats of a span content engine.
//
// Usage:
//
//	spanconv [flags] [file]
//
// Input is read from file, or stdin when no file is given, and written to stdout.
// Without -from the input format is sniffed. Without -to the output format is
// negotiated from -accept, which defaults to JSON.
//
// Flags:
//
//	-config file             YAML engine settings, see encoding.Config
//	-from type               input media type, e.g. application/yaml
//	-to type                 output media type, overrides -accept
//	-accept header           Accept header used to pick the output format
//	-accept-encoding header  Accept-Encoding header used to compress the output
//	-content-encoding codes  content-codings applied to the input, e.g. "gzip"
//	-v                       log negotiation and sniffing to stderr
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/illuscio-dev/spangraph-go/encoding"
	"github.com/illuscio-dev/spangraph-go/mimetype"
	"github.com/illuscio-dev/spangraph-go/neutral"
	"golang.org/x/xerrors"
)

type options struct {
	configPath      string
	from            string
	to              string
	accept          string
	acceptEncoding  string
	contentEncoding string
	verbose         bool
	input           string
}

func parseOptions(args []string) (options, error) {
	opts := options{}

	flags := flag.NewFlagSet("spanconv", flag.ContinueOnError)
	flags.StringVar(&opts.configPath, "config", "", "YAML engine settings")
	flags.StringVar(&opts.from, "from", "", "input media type, sniffed when empty")
	flags.StringVar(&opts.to, "to", "", "output media type, overrides -accept")
	flags.StringVar(
		&opts.accept, "accept", string(mimetype.JSON), "Accept header for the output",
	)
	flags.StringVar(
		&opts.acceptEncoding, "accept-encoding", "", "Accept-Encoding header for the output",
	)
	flags.StringVar(
		&opts.contentEncoding, "content-encoding", "", "content-codings of the input",
	)
	flags.BoolVar(&opts.verbose, "v", false, "log negotiation and sniffing to stderr")

	if err := flags.Parse(args); err != nil {
		return opts, err
	}

	switch flags.NArg() {
	case 0:
	case 1:
		opts.input = flags.Arg(0)
	default:
		return opts, xerrors.Errorf("expected at most one input file, got %d", flags.NArg())
	}
	return opts, nil
}

func loadConfig(path string) (encoding.Config, error) {
	if path == "" {
		return encoding.DefaultConfig(), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return encoding.Config{}, err
	}
	defer file.Close()

	return encoding.LoadConfig(file)
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func run(opts options, stdin io.Reader, stdout io.Writer, logger *slog.Logger) error {
	config, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.from == "" {
		config.AllowSniff = true
	}

	engine, err := encoding.NewContentEngineFromConfig(config)
	if err != nil {
		return err
	}
	engine.SetLogger(logger)

	input := stdin
	if opts.input != "" && opts.input != "-" {
		file, err := os.Open(opts.input)
		if err != nil {
			return err
		}
		defer file.Close()
		input = file
	}

	requestHeaders := http.Header{}
	requestHeaders.Set("Content-Type", opts.from)
	requestHeaders.Set("Content-Encoding", opts.contentEncoding)

	tree := &neutral.Value{}
	if err := engine.DecodeContent(requestHeaders, tree, input); err != nil {
		return xerrors.Errorf("error reading input: %w", err)
	}

	accept := opts.accept
	if opts.to != "" {
		accept = string(mimetype.FromString(opts.to))
	}

	responseHeaders := http.Header{}
	responseHeaders.Set("Accept", accept)
	responseHeaders.Set("Accept-Encoding", opts.acceptEncoding)

	output := bufio.NewWriter(stdout)
	representation, err := engine.EncodeNegotiated(responseHeaders, tree, output)
	if err != nil {
		return xerrors.Errorf("error writing output: %w", err)
	}
	logger.Debug(
		"converted content",
		slog.String("contentType", representation.ContentType()),
		slog.String("coding", representation.Coding),
	)

	return output.Flush()
}

func main() {
	opts, err := parseOptions(os.Args[1:])
	if err == flag.ErrHelp {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "spanconv:", err)
		os.Exit(2)
	}

	logger := newLogger(opts.verbose)
	if err := run(opts, os.Stdin, os.Stdout, logger); err != nil {
		logger.Error("conversion failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
