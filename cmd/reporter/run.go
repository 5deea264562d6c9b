package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"clearcrew/internal/platform/config"
	"clearcrew/internal/platform/logger"
	dErrors "clearcrew/pkg/domain-errors"
	"clearcrew/pkg/requestcontext"
)

// Exit codes.
const (
	exitOK        = 0
	exitFailure   = 1
	exitUsage     = 2
	exitRetryable = 75
)

type streams struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

type command struct {
	summary string
	// standalone commands run without the device store or registry client.
	standalone bool
	run        func(ctx context.Context, a *app, args []string, std streams) error
}

var commands = map[string]command{
	"register": {summary: "register this device's anonymous identity", run: runRegister},
	"reset":    {summary: "forget the identity on this device", run: runReset},
	"login":    {summary: "log in to the registry and store the session", run: runLogin},
	"logout":   {summary: "forget the registry session", run: runLogout},
	"status":   {summary: "show session and identity state", run: runStatus},
	"submit":   {summary: "seal, prove and anchor one report", run: runSubmit},
	"serve":    {summary: "serve the local API on a loopback address", run: runServe},
	"keygen":   {summary: "write groth16 keys and a Solidity verifier", standalone: true, run: runKeygen},
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	std := streams{stdin: stdin, stdout: stdout, stderr: stderr}
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		usage(stderr)
		return exitUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command: %s\n\n", args[0])
		usage(stderr)
		return exitUsage
	}

	cfg, err := loadConfig(cmd.standalone)
	if err != nil {
		fmt.Fprintf(stderr, "configuration: %v\n", err)
		return exitUsage
	}
	log := logger.NewWithWriter(stderr, cfg.LogLevel, cfg.LogFormat)
	ctx = requestcontext.EnsureRequestID(ctx)

	var a *app
	if cmd.standalone {
		a = &app{cfg: cfg, logger: log}
	} else {
		a, err = newApp(ctx, cfg, log)
		if err != nil {
			return reportError(stderr, err)
		}
		defer func() {
			if err := a.Close(); err != nil {
				log.Warn("shutdown", "error", err)
			}
		}()
	}

	if err := cmd.run(ctx, a, args[1:], std); err != nil {
		if errors.As(err, new(usageError)) {
			return exitUsage
		}
		return reportError(stderr, err)
	}
	return exitOK
}

func loadConfig(standalone bool) (config.Config, error) {
	envFile := os.Getenv("REPORTER_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	cfg, err := config.Load(envFile)
	if standalone && cfg.Pipeline.TreeDepth > 0 {
		// Parsed but failed validation; standalone commands need no registry.
		return cfg, nil
	}
	return cfg, err
}

// reportError prints err as JSON on stderr and picks the exit code.
func reportError(w io.Writer, err error) int {
	code := dErrors.CodeOf(err)
	body := map[string]any{"error": code, "message": dErrors.Message(err)}
	if code == dErrors.CodeInternal {
		body["message"] = err.Error()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(body)
	if dErrors.Retryable(err) {
		return exitRetryable
	}
	return exitFailure
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: reporter <command> [flags]")
	fmt.Fprintln(w)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-9s %s\n", name, commands[name].summary)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
