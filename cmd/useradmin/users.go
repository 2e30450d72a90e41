package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/open-sspm/useradmin/internal/auth"
	"github.com/open-sspm/useradmin/internal/config"
	"github.com/open-sspm/useradmin/internal/store"
	"github.com/open-sspm/useradmin/internal/users"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	usersCommandTimeout     = 15 * time.Second
	generatedPasswordLength = 24
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage user accounts.",
}

type passwordFlags struct {
	password string
	stdin    bool
	generate bool
}

type accountFlags struct {
	email    string
	name     string
	password passwordFlags
}

func (f *accountFlags) register(cmd *cobra.Command, subject string) {
	cmd.Flags().StringVar(&f.email, "email", "", "Email address for the "+subject)
	cmd.Flags().StringVar(&f.name, "name", "", "Display name for the "+subject)
	cmd.Flags().StringVar(&f.password.password, "password", "", "Password for the "+subject+" (discouraged; prefer --password-stdin)")
	cmd.Flags().BoolVar(&f.password.stdin, "password-stdin", false, "Read the password from stdin")
	cmd.Flags().BoolVar(&f.password.generate, "generate-password", false, "Generate a random password and print it")
	_ = cmd.MarkFlagRequired("email")
}

// account validates the flags and returns the normalized email and name.
func (f *accountFlags) account() (string, string, error) {
	email := users.NormalizeEmail(f.email)
	if email == "" {
		return "", "", usageError("--email is required")
	}
	if err := users.ValidateEmail(email); err != nil {
		return "", "", usageError("--email %q is not a valid email address", f.email)
	}
	name := strings.TrimSpace(f.name)
	if name == "" {
		name = defaultNameForEmail(email)
	}
	return email, name, nil
}

var bootstrapAdminFlags accountFlags

var bootstrapAdminCmd = &cobra.Command{
	Use:   "bootstrap-admin",
	Short: "Create the first admin user (idempotent if an admin already exists).",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, name, err := bootstrapAdminFlags.account()
		if err != nil {
			return err
		}

		password, generated, err := resolvePassword(cmd, bootstrapAdminFlags.password)
		if err != nil {
			return err
		}

		return withStore(func(ctx context.Context, st *store.Store) error {
			adminCount, err := st.CountAdmins(ctx)
			if err != nil {
				return err
			}
			if adminCount > 0 {
				cmd.Println("admin user already exists; nothing to do")
				return nil
			}

			if err := createAccount(ctx, st, store.CreateUserParams{
				Name:    name,
				Email:   email,
				IsAdmin: true,
			}, password); err != nil {
				return err
			}

			cmd.Printf("created admin user: %s\n", email)
			if generated {
				cmd.Printf("generated password: %s\n", password)
			}
			return nil
		})
	},
}

var (
	createUserFlags accountFlags
	createUserAdmin bool
)

var createUserCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user account.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, name, err := createUserFlags.account()
		if err != nil {
			return err
		}

		password, generated, err := resolvePassword(cmd, createUserFlags.password)
		if err != nil {
			return err
		}

		return withStore(func(ctx context.Context, st *store.Store) error {
			if err := createAccount(ctx, st, store.CreateUserParams{
				Name:    name,
				Email:   email,
				IsAdmin: createUserAdmin,
			}, password); err != nil {
				return err
			}

			role := "user"
			if createUserAdmin {
				role = "admin user"
			}
			cmd.Printf("created %s: %s\n", role, email)
			if generated {
				cmd.Printf("generated password: %s\n", password)
			}
			return nil
		})
	},
}

func withStore(fn func(ctx context.Context, st *store.Store) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), usersCommandTimeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(ctx, store.New(pool))
}

func createAccount(ctx context.Context, st *store.Store, params store.CreateUserParams, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	params.PasswordHash = hash

	if _, err := st.CreateUser(ctx, params); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return fmt.Errorf("user already exists: %s", params.Email)
		}
		return err
	}
	return nil
}

// defaultNameForEmail uses the local part of the address.
func defaultNameForEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

func resolvePassword(cmd *cobra.Command, f passwordFlags) (string, bool, error) {
	if f.stdin && f.generate {
		return "", false, usageError("--password-stdin and --generate-password are mutually exclusive")
	}
	if f.stdin && f.password != "" {
		return "", false, usageError("--password-stdin and --password are mutually exclusive")
	}
	if f.generate && f.password != "" {
		return "", false, usageError("--generate-password and --password are mutually exclusive")
	}

	if f.generate {
		password, err := generatePassword(generatedPasswordLength)
		if err != nil {
			return "", false, err
		}
		return password, true, nil
	}

	var password string
	switch {
	case f.stdin:
		raw, err := ioReadAllStdin()
		if err != nil {
			return "", false, err
		}
		password = strings.TrimRight(raw, "\r\n")
	case f.password != "":
		password = f.password
	default:
		prompted, err := promptPassword(cmd)
		if err != nil {
			return "", false, err
		}
		password = prompted
	}

	if err := auth.ValidatePassword(password); err != nil {
		return "", false, err
	}
	return password, false, nil
}

func promptPassword(cmd *cobra.Command) (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", usageError("no password provided (use --password, --password-stdin, or --generate-password)")
	}

	cmd.Print("Password: ")
	pass1, err := term.ReadPassword(int(os.Stdin.Fd()))
	cmd.Println()
	if err != nil {
		return "", err
	}
	if len(pass1) == 0 {
		return "", errors.New("password is empty")
	}

	cmd.Print("Confirm password: ")
	pass2, err := term.ReadPassword(int(os.Stdin.Fd()))
	cmd.Println()
	if err != nil {
		return "", err
	}

	if string(pass1) != string(pass2) {
		return "", errors.New("passwords do not match")
	}
	return string(pass1), nil
}

func ioReadAllStdin() (string, error) {
	in, err := os.Stdin.Stat()
	if err != nil {
		return "", err
	}
	if in.Mode()&os.ModeCharDevice != 0 {
		return "", errors.New("stdin is a terminal; use --password or omit to prompt")
	}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", nil
	}
	return scanner.Text(), nil
}

func generatePassword(length int) (string, error) {
	if length < 16 {
		return "", errors.New("password length too short")
	}
	const alphabet = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	const alphabetLen = byte(len(alphabet))
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = alphabet[b[i]%alphabetLen]
	}
	return string(b), nil
}

func init() {
	usersCmd.AddCommand(bootstrapAdminCmd, createUserCmd)
	bootstrapAdminFlags.register(bootstrapAdminCmd, "admin user")
	createUserFlags.register(createUserCmd, "user")
	createUserCmd.Flags().BoolVar(&createUserAdmin, "admin", false, "Grant the admin flag")
}
