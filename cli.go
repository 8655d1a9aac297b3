package main

import (
	"context"
	"fmt"
	"io"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/metalyz/backend/config"
	"github.com/metalyz/backend/logging"
)

// Dependencies holds what commands need at run time.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	Config *config.Config
	Logger *log.Logger
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Config config.Config `embed:""`

	Serve   ServeCmd   `cmd:"" default:"1" help:"Run the HTTP API (default)"`
	Analyze AnalyzeCmd `cmd:"" help:"Analyze one URL and print the result as JSON"`
}

// Main represents the program.
type Main struct {
	// LoadEnv reads .env files before parsing. Tests turn it off.
	LoadEnv bool
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{LoadEnv: true}
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if m.LoadEnv {
		config.LoadEnv()
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("metalyz"),
		kong.Description("SEO meta-tag analysis service."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	// Kong prints help through its hook; with Exit disabled parsing would
	// then fall through to the default command.
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			_, _ = parser.Parse(args)
			return nil
		}
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	// Config is embedded, so validate it explicitly.
	if err := cli.Config.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(stderr, cli.Config.LogLevel, cli.Config.LogFormat)
	if err != nil {
		return err
	}

	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
		Config: &cli.Config,
		Logger: logger,
	}
	return kongCtx.Run(deps)
}
