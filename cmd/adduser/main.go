// Command adduser registers an account directly against the database,
// bypassing the HTTP API. Registration over the API is open; this exists for
// seeding a fresh deployment before the server is reachable.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/shosatojp/kakeibo-back/internal/services"
	"github.com/shosatojp/kakeibo-back/internal/storage"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "adduser: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	defaultDB := os.Getenv("SQLITE_DB_PATH")
	if defaultDB == "" {
		defaultDB = "./data/kakeibo.db"
	}

	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: adduser [flags] <user name>")
		fs.PrintDefaults()
	}

	password := fs.String("password", "", "password; prompted for when omitted")
	dbPath := fs.String("db", defaultDB, "sqlite database path")
	minLength := fs.Int("min-password-length", services.DefaultMinPasswordLength, "password policy floor")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("expected exactly one user name argument")
	}
	userName := fs.Arg(0)

	if *password == "" {
		entered, err := promptPassword(stdin, stdout)
		if err != nil {
			return err
		}
		*password = entered
	}
	if strings.TrimSpace(*password) == "" {
		return fmt.Errorf("password must not be empty")
	}

	repo, err := storage.NewSQLiteRepository(*dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer repo.Close()

	auth := services.NewAuthService(repo, services.SHA256Digester{}, *minLength)
	id, err := auth.Register(context.Background(), userName, *password)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	fmt.Fprintf(stdout, "created user %q (id %d)\n", userName, id)
	return nil
}

// promptPassword asks twice, the way passwd does, so a typo does not end up
// as the stored credential. One buffered reader serves both prompts; a fresh
// one per prompt would swallow the second line.
func promptPassword(stdin io.Reader, stdout io.Writer) (string, error) {
	lines := bufio.NewReader(stdin)

	first, err := readSecret(stdin, lines, stdout, "New password: ")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	second, err := readSecret(stdin, lines, stdout, "Retype password: ")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if first != second {
		return "", fmt.Errorf("passwords do not match")
	}
	return first, nil
}

// readSecret suppresses echo on a terminal and falls back to plain line
// reading for pipes and tests.
func readSecret(stdin io.Reader, lines *bufio.Reader, stdout io.Writer, prompt string) (string, error) {
	fmt.Fprint(stdout, prompt)

	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(stdout)
		if err != nil {
			return "", err
		}
		return string(secret), nil
	}

	line, err := lines.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	fmt.Fprintln(stdout)
	return strings.TrimRight(line, "\r\n"), nil
}
