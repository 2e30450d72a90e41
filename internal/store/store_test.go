package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/open-sspm/useradmin/internal/users"
)

type storeHarness struct {
	ctx    context.Context
	tx     pgx.Tx
	store  *Store
	suffix string
}

func newStoreHarness(t *testing.T) *storeHarness {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("USERADMIN_TEST_DATABASE_URL"))
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	if dsn == "" {
		t.Skip("skipping DB-backed store test: set USERADMIN_TEST_DATABASE_URL or DATABASE_URL")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		cancel()
		t.Skipf("skipping DB-backed store test: open database pool failed: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		cancel()
		t.Skipf("skipping DB-backed store test: database ping failed: %v", err)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		pool.Close()
		cancel()
		t.Fatalf("begin tx: %v", err)
	}
	t.Cleanup(func() {
		_ = tx.Rollback(context.Background())
		pool.Close()
		cancel()
	})

	migrationSQL, err := os.ReadFile(filepath.Join("..", "..", "db", "migrations", "000001_users.up.sql"))
	if err != nil {
		t.Skipf("skipping DB-backed store test: users migration not found: %v", err)
	}
	if _, err := tx.Exec(ctx, string(migrationSQL)); err != nil {
		t.Skipf("skipping DB-backed store test: applying users migration failed: %v", err)
	}

	return &storeHarness{
		ctx:    ctx,
		tx:     tx,
		store:  New(tx),
		suffix: fmt.Sprintf("%d", time.Now().UnixNano()),
	}
}

func (h *storeHarness) email(local string) string {
	return local + "+" + h.suffix + "@example.com"
}

func (h *storeHarness) create(t *testing.T, name string, admin bool) users.User {
	t.Helper()
	u, err := h.store.CreateUser(h.ctx, CreateUserParams{
		Name:    name,
		Email:   h.email(name),
		IsAdmin: admin,
	})
	if err != nil {
		t.Fatalf("CreateUser(%q) error = %v", name, err)
	}
	return u
}

func TestStoreUpdateUserKeepsBlankFields(t *testing.T) {
	h := newStoreHarness(t)
	alice := h.create(t, "alice", false)

	updated, err := h.store.UpdateUser(h.ctx, alice.ID, users.UpdateParams{Name: "alicia"})
	if err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}
	if updated.Name != "alicia" {
		t.Fatalf("Name = %q, want %q", updated.Name, "alicia")
	}
	if updated.Email != alice.Email {
		t.Fatalf("Email = %q, want unchanged %q", updated.Email, alice.Email)
	}

	list, err := h.store.ListUsers(h.ctx)
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	found := false
	for _, u := range list {
		if u.ID == alice.ID {
			found = true
			if u.Name != "alicia" {
				t.Fatalf("listed Name = %q, want %q", u.Name, "alicia")
			}
		}
	}
	if !found {
		t.Fatalf("updated user %q missing from list", alice.ID)
	}
}

func TestStoreUpdateUserDuplicateEmail(t *testing.T) {
	h := newStoreHarness(t)
	alice := h.create(t, "alice", false)
	bob := h.create(t, "bob", false)

	_, err := h.store.UpdateUser(h.ctx, bob.ID, users.UpdateParams{Email: strings.ToUpper(alice.Email)})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("UpdateUser() error = %v, want ErrEmailTaken", err)
	}
}

func TestStoreUpdateUserNotFound(t *testing.T) {
	h := newStoreHarness(t)

	_, err := h.store.UpdateUser(h.ctx, "missing-"+h.suffix, users.UpdateParams{Name: "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateUser() error = %v, want ErrNotFound", err)
	}
}

func TestStoreDeleteUser(t *testing.T) {
	h := newStoreHarness(t)
	admin := h.create(t, "root", true)
	carol := h.create(t, "carol", false)

	if err := h.store.DeleteUser(h.ctx, admin.ID); !errors.Is(err, ErrAdminProtected) {
		t.Fatalf("DeleteUser(admin) error = %v, want ErrAdminProtected", err)
	}
	if err := h.store.DeleteUser(h.ctx, carol.ID); err != nil {
		t.Fatalf("DeleteUser(carol) error = %v", err)
	}
	if _, err := h.store.GetUser(h.ctx, carol.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetUser(deleted) error = %v, want ErrNotFound", err)
	}
	if err := h.store.DeleteUser(h.ctx, carol.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("DeleteUser(twice) error = %v, want ErrNotFound", err)
	}
}

func TestStoreGetUserCredentialsNormalizesEmail(t *testing.T) {
	h := newStoreHarness(t)
	created, err := h.store.CreateUser(h.ctx, CreateUserParams{
		Name:         "dave",
		Email:        h.email("Dave"),
		PasswordHash: "hash",
	})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	u, hash, err := h.store.GetUserCredentials(h.ctx, "  "+strings.ToUpper(created.Email))
	if err != nil {
		t.Fatalf("GetUserCredentials() error = %v", err)
	}
	if u.ID != created.ID || hash != "hash" {
		t.Fatalf("unexpected credentials: %#v %q", u, hash)
	}
}
