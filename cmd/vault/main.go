package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/awnumar/memguard"
	"github.com/sirupsen/logrus"

	"github.com/fahmaliyi/passvault/cli"
	"github.com/fahmaliyi/passvault/config"
	"github.com/fahmaliyi/passvault/ipc"
	"github.com/fahmaliyi/passvault/logging"
	"github.com/fahmaliyi/passvault/vault"
)

const (
	version         = "0.1.0-dev"
	confirmationYes = "yes"
	logFileName     = "passvault.log"
)

func main() {
	memguard.CatchInterrupt()
	memguard.SafeExit(run(os.Args[1:]))
}

func run(args []string) int {
	command := "repl"
	if len(args) > 0 {
		command = strings.ToLower(args[0])
		args = args[1:]
	}

	handler, ok := commandHandlers()[command]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage(nil)
		return 1
	}
	if err := handler(args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func commandHandlers() map[string]func([]string) error {
	return map[string]func([]string) error{
		"repl":     runREPL,
		"tui":      runTUI,
		"serve":    runServe,
		"generate": runGenerate,
		"status":   runStatus,
		"destroy":  runDestroy,
		"version":  runVersion,
		"help":     printUsage,
		"--help":   printUsage,
		"-h":       printUsage,
	}
}

type app struct {
	cfg     config.Config
	log     *logrus.Logger
	closer  io.Closer
	session *vault.Session
}

// setup loads config and opens the session. Interactive front ends log to
// a file so log lines never interleave with prompts.
func setup(interactive bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}
	logFile := cfg.Logging.File
	if logFile == "" && interactive {
		logFile = filepath.Join(cfg.DataDir, logFileName)
	}
	if logFile != "" {
		a.log, a.closer, err = logging.NewFile(cfg.Logging.Level, cfg.Logging.Format, logFile)
	} else {
		a.log, err = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	if err != nil {
		return nil, err
	}

	store := vault.NewFileStore(cfg.VaultPath())
	a.session = vault.NewSession(store,
		vault.WithKDFParams(cfg.KDFParams()),
		vault.WithLogger(a.log),
	)
	return a, nil
}

func (a *app) close() {
	a.session.Lock()
	if a.closer != nil {
		a.closer.Close()
	}
}

func runREPL([]string) error {
	a, err := setup(true)
	if err != nil {
		return err
	}
	defer a.close()

	in := bufio.NewReader(os.Stdin)
	secret := cli.NewSecretReader(in, os.Stdout)
	if err := cli.Login(a.session, secret, os.Stdout); err != nil {
		return err
	}

	clip := cli.NewClipboard(a.cfg.ClipboardTimeout())
	defer clip.Flush()

	r := cli.NewREPL(a.session, in, os.Stdout, secret, clip)
	r.SetGenerator(a.cfg.Generator.Length, a.cfg.GeneratorSymbols())
	return r.Run()
}

func runTUI([]string) error {
	a, err := setup(true)
	if err != nil {
		return err
	}
	defer a.close()

	in := bufio.NewReader(os.Stdin)
	if err := cli.Login(a.session, cli.NewSecretReader(in, os.Stdout), os.Stdout); err != nil {
		return err
	}

	clip := cli.NewClipboard(a.cfg.ClipboardTimeout())
	defer clip.Flush()
	return cli.RunTUI(a.session, clip, a.cfg.Generator.Length, a.cfg.GeneratorSymbols())
}

// runServe speaks line-delimited JSON on stdin/stdout for a host shell.
func runServe([]string) error {
	a, err := setup(false)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	d := ipc.NewDispatcher(a.session,
		ipc.WithLogger(a.log),
		ipc.WithUnlockRate(a.cfg.UnlockRate.PerSecond, a.cfg.UnlockRate.Burst),
		ipc.WithGeneratorDefaults(a.cfg.Generator.Length, a.cfg.GeneratorSymbols()),
	)
	err = d.Serve(ctx, os.Stdin, os.Stdout)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runGenerate(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	length := fs.Int("length", cfg.Generator.Length, "password length (8-128)")
	noSymbols := fs.Bool("no-symbols", !cfg.GeneratorSymbols(), "letters and digits only")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pw, err := vault.GeneratePassword(*length, !*noSymbols)
	if err != nil {
		return err
	}
	fmt.Println(pw)
	return nil
}

func runStatus([]string) error {
	a, err := setup(false)
	if err != nil {
		return err
	}
	defer a.close()

	remaining, err := a.session.RemainingAttempts()
	if err != nil {
		return err
	}
	fmt.Printf("Config:    %s\n", config.ConfigPath())
	fmt.Printf("Vault:     %s\n", a.cfg.VaultPath())
	fmt.Printf("State:     %s\n", a.session.State())
	fmt.Printf("Attempts:  %d of %d remaining\n", remaining, vault.MaxFailedAttempts)
	return nil
}

func runDestroy([]string) error {
	a, err := setup(false)
	if err != nil {
		return err
	}
	defer a.close()

	if !a.session.Exists() {
		fmt.Println("No vault to destroy.")
		return nil
	}

	fmt.Printf("This permanently deletes %s and every password in it.\n", a.cfg.VaultPath())
	fmt.Printf("Type '%s' to continue: ", confirmationYes)
	answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	if strings.TrimSpace(answer) != confirmationYes {
		fmt.Println("Aborted.")
		return nil
	}

	if err := a.session.Delete(); err != nil {
		return err
	}
	fmt.Println("Vault deleted.")
	return nil
}

func runVersion([]string) error {
	fmt.Printf("passvault version %s\n", version)
	return nil
}

func printUsage([]string) error {
	fmt.Println(`passvault - encrypted password vault

Usage: vault [command]

Commands:
  repl       Interactive prompt (default)
  tui        Full-screen terminal UI
  serve      JSON command server on stdin/stdout
  generate   Print a random password (-length N, -no-symbols)
  status     Show vault location, state and remaining attempts
  destroy    Delete the vault file
  version    Print version
  help       Show this help

Environment:
  PASSVAULT_CONFIG_DIR   directory holding config.yaml
  PASSVAULT_DATA_DIR     directory holding the vault file`)
	return nil
}
