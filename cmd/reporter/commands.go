package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"clearcrew/internal/identity/models"
	"clearcrew/internal/pipeline"
	"clearcrew/internal/platform/config"
	"clearcrew/internal/platform/httpserver"
	"clearcrew/internal/prover/groth16"
	"clearcrew/internal/report"
	httptransport "clearcrew/internal/transport/http"
	dErrors "clearcrew/pkg/domain-errors"
)

func newFlags(name string, std streams) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(std.stderr)
	return fs
}

// usageError marks bad flags; flag has already printed the details.
type usageError struct{ error }

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return usageError{err}
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(fs.Output(), "unexpected arguments: %v\n", fs.Args())
		return usageError{errors.New("unexpected arguments")}
	}
	return nil
}

func runRegister(ctx context.Context, a *app, args []string, std streams) error {
	fs := newFlags("register", std)
	secretsStdin := fs.Bool("secrets-stdin", false, "read the nullifier seed and identity secret from stdin, one hex value per line")
	generate := fs.Bool("generate", false, "generate a fresh random identity")
	confirm := fs.Bool("confirm", false, "replace a different identity already on this device")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	var seed, secret string
	switch {
	case *generate && *secretsStdin:
		return errors.New("-generate cannot be combined with -secrets-stdin")
	case *generate:
		var err error
		if seed, err = randomScalarHex(); err != nil {
			return err
		}
		if secret, err = randomScalarHex(); err != nil {
			return err
		}
	case *secretsStdin:
		var err error
		if seed, secret, err = readSecrets(std.stdin); err != nil {
			return err
		}
	default:
		return errors.New("provide the identity with -secrets-stdin or -generate")
	}
	id, err := models.New(seed, secret)
	if err != nil {
		return err
	}

	registrar, err := a.registrar()
	if err != nil {
		return err
	}
	ack, err := registrar.Register(ctx, id, models.RegisterOptions{ConfirmOverwrite: *confirm})
	if err != nil {
		return err
	}
	return printJSON(std.stdout, ack)
}

// readSecrets reads the seed then the secret, one per line, keeping both out
// of argv.
func readSecrets(r io.Reader) (seed, secret string, err error) {
	sc := bufio.NewScanner(r)
	var lines []string
	for len(lines) < 2 && sc.Scan() {
		lines = append(lines, strings.TrimSpace(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return "", "", fmt.Errorf("read identity: %w", err)
	}
	if len(lines) < 2 || lines[0] == "" || lines[1] == "" {
		return "", "", errors.New("-secrets-stdin expects the seed and the secret on two lines")
	}
	return lines[0], lines[1], nil
}

// randomScalarHex returns 31 random bytes as hex, always below the field order.
func randomScalarHex() (string, error) {
	var b [31]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generate identity: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}

func runReset(ctx context.Context, a *app, args []string, std streams) error {
	fs := newFlags("reset", std)
	confirm := fs.Bool("confirm", false, "confirm the identity should be forgotten")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	registrar, err := a.registrar()
	if err != nil {
		return err
	}
	if err := registrar.Reset(ctx, *confirm); err != nil {
		return err
	}
	return printJSON(std.stdout, map[string]string{"status": "identity forgotten"})
}

func runLogin(ctx context.Context, a *app, args []string, std streams) error {
	fs := newFlags("login", std)
	email := fs.String("email", a.cfg.Registry.Email, "registry account email")
	passwordStdin := fs.Bool("password-stdin", false, "read the password from stdin")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("-email or REGISTRY_EMAIL is required")
	}

	password := os.Getenv("REGISTRY_PASSWORD")
	if *passwordStdin {
		line, err := bufio.NewReader(std.stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		return errors.New("provide the password with -password-stdin or REGISTRY_PASSWORD")
	}

	resp, err := a.registry.Login(ctx, *email, password)
	if err != nil {
		return err
	}
	if err := a.session.Save(ctx, resp.Token); err != nil {
		return err
	}
	return printJSON(std.stdout, map[string]string{
		"status": "logged in",
		"name":   resp.Name,
		"role":   resp.Role,
	})
}

func runLogout(ctx context.Context, a *app, _ []string, std streams) error {
	if err := a.session.Clear(ctx); err != nil {
		return err
	}
	return printJSON(std.stdout, map[string]string{"status": "logged out"})
}

type statusOutput struct {
	LoggedIn   bool       `json:"loggedIn"`
	Subject    string     `json:"subject,omitempty"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	Identity   bool       `json:"identity"`
	Commitment string     `json:"commitment,omitempty"`
}

func runStatus(ctx context.Context, a *app, _ []string, std streams) error {
	info, err := a.session.Info(ctx)
	if err != nil {
		return err
	}
	out := statusOutput{LoggedIn: info.LoggedIn, Subject: info.Subject, ExpiresAt: info.ExpiresAt}

	registrar, err := a.registrar()
	if err != nil {
		return err
	}
	leaf, err := registrar.Commitment(ctx)
	switch {
	case err == nil:
		out.Identity = true
		out.Commitment = leaf
	case !dErrors.Is(err, dErrors.CodeNoIdentity):
		return err
	}
	return printJSON(std.stdout, out)
}

func runSubmit(ctx context.Context, a *app, args []string, std streams) error {
	fs := newFlags("submit", std)
	category := fs.String("category", "", "one of HARASSMENT, DISCRIMINATION, CORRUPTION, SAFETY, ETHICS, OTHER")
	title := fs.String("title", "", "report title")
	description := fs.String("description", "", "report description")
	department := fs.String("department", "", "department, optional")
	date := fs.String("date", "", "date of the incident, optional")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	r, err := report.Report{
		Category:    report.Category(*category),
		Title:       *title,
		Description: *description,
		Department:  *department,
		Date:        *date,
	}.Normalize()
	if err != nil {
		return err
	}

	tracker, err := a.tracker(ctx)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Pipeline.SubmitTimeout)
	defer cancel()

	result, err := tracker.Submit(ctx, r)
	if err != nil {
		return err
	}
	return printJSON(std.stdout, result)
}

func runServe(ctx context.Context, a *app, args []string, std streams) error {
	fs := newFlags("serve", std)
	addr := fs.String("addr", a.cfg.Server.Addr, "loopback listen address")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	registrar, err := a.registrar()
	if err != nil {
		return err
	}
	tracker, err := a.tracker(ctx)
	if err != nil {
		return err
	}
	handler := httptransport.New(registrar, tracker,
		httptransport.WithLogger(a.logger),
		httptransport.WithSubmitTimeout(a.cfg.Pipeline.SubmitTimeout),
	)
	router := httptransport.NewRouter(handler, httptransport.RouterConfig{
		Logger:   a.logger,
		Metrics:  a.metrics,
		Exporter: promhttp.HandlerFor(a.promReg, promhttp.HandlerOpts{}),
		APIToken: a.cfg.Server.APIToken,
	})
	return serve(ctx, a, *addr, router, tracker)
}

func serve(ctx context.Context, a *app, addr string, router http.Handler, tracker *pipeline.Tracker) error {
	if !config.IsLoopback(addr) {
		return fmt.Errorf("refusing to listen on non-loopback address %q", addr)
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	srv := httpserver.New(addr, router)
	a.logger.Info("local API listening", "addr", ln.Addr().String())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Serve(ctx, srv, ln, a.cfg.Server.ShutdownTimeout)
	})
	g.Go(func() error {
		updates, unsubscribe := tracker.Subscribe()
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return nil
			case st := <-updates:
				a.logger.Info("submission state", "state", st.State, "code", st.Code)
			}
		}
	})
	return g.Wait()
}

func runKeygen(_ context.Context, a *app, args []string, std streams) error {
	fs := newFlags("keygen", std)
	depth := fs.Int("depth", a.cfg.Pipeline.TreeDepth, "registry tree depth")
	out := fs.String("out", ".", "output directory")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	a.logger.Info("running groth16 setup", "depth", *depth)
	backend, err := groth16.Setup(*depth, groth16.WithLogger(a.logger))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		return err
	}

	paths := map[string]string{
		"proving_key":   filepath.Join(*out, "proving.key"),
		"verifying_key": filepath.Join(*out, "verifying.key"),
		"verifier":      filepath.Join(*out, "Verifier.sol"),
	}
	pk, err := os.Create(paths["proving_key"])
	if err != nil {
		return err
	}
	defer pk.Close()
	vk, err := os.Create(paths["verifying_key"])
	if err != nil {
		return err
	}
	defer vk.Close()
	if err := backend.WriteKeys(pk, vk); err != nil {
		return err
	}
	sol, err := os.Create(paths["verifier"])
	if err != nil {
		return err
	}
	defer sol.Close()
	if err := backend.ExportSolidity(sol); err != nil {
		return fmt.Errorf("export verifier: %w", err)
	}
	return printJSON(std.stdout, paths)
}
