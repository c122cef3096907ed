// Command create-user adds an account to the configured store.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"expensetracker/internal/auth"
	"expensetracker/internal/backend"
	"expensetracker/internal/cli"
	"expensetracker/internal/config"
	"expensetracker/internal/core"

	"golang.org/x/term"
)

func main() {
	cli.LoadEnvFile()

	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg := config.Load()

	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	fs.SetOutput(stderr)

	email := fs.String("email", "", "Email address (login)")
	username := fs.String("username", "", "Display name")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	role := fs.String("role", string(core.RoleUser), "Role: user or admin")
	backendType := fs.String("backend", cfg.DataBackend, "Store: sqlite, mongo or postgres")
	dbPath := fs.String("db", cfg.SQLiteDBPath, "Path to the sqlite database file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email == "" || *username == "" {
		fmt.Fprintln(stdout, "Usage: create-user -email <email> -username <name> [-password <password>] [-role admin] [-backend sqlite -db <path>]")
		fs.PrintDefaults()
		return errors.New("missing required flags: email, username")
	}
	if backend.BackendType(*backendType) == backend.MemoryBackend {
		return errors.New("the memory backend does not persist users, pick sqlite, mongo or postgres")
	}

	password := *passwordFlag
	if password == "" {
		fmt.Fprint(stdout, "Password: ")
		var err error
		password, err = readPassword(stdin)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(stdout)
	}
	if strings.TrimSpace(password) == "" {
		return errors.New("password cannot be empty")
	}

	user, err := auth.NewUser(auth.RegisterInput{
		Email:    *email,
		Password: password,
		Username: *username,
		Role:     *role,
	}, time.Now())
	if err != nil {
		return err
	}

	cfg.DataBackend = *backendType
	cfg.SQLiteDBPath = *dbPath
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	quiet := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	result, err := backend.NewFactory(quiet).CreateBackend(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", backendCfg.Type, err)
	}
	defer func() { _ = result.Cleanup() }()

	saved, err := result.Store.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, core.ErrConflict) {
			return fmt.Errorf("user %s already exists", user.Email)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(stdout, "User %s (%s) created with ID %s\n", saved.Email, saved.Role, saved.ID)
	return nil
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}

	// pipes and tests
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
