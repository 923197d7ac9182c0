package directory

import (
	"context"
	"errors"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/suPer8Hu/gopherchat/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// named per-test so every pooled connection sees the same database
	db, err := gorm.Open(gormsqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seed(t *testing.T, svc *Service, id, email, name string) {
	t.Helper()
	if _, err := svc.Provision(context.Background(), id, email, name); err != nil {
		t.Fatalf("provision %s: %v", id, err)
	}
}

func TestProvision_UpsertAndIDRules(t *testing.T) {
	svc := NewService(openTestDB(t))
	ctx := context.Background()

	u, err := svc.Provision(ctx, "u1", "a@x.com", "Alice")
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	if u.DisplayName != "Alice" {
		t.Fatalf("unexpected display name %q", u.DisplayName)
	}

	// second push with same id updates the profile in place
	if _, err := svc.Provision(ctx, "u1", "a@x.com", "Alice B."); err != nil {
		t.Fatalf("re-provision: %v", err)
	}
	got, err := svc.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.DisplayName != "Alice B." {
		t.Fatalf("profile update lost: %q", got.DisplayName)
	}

	// separator is banned at the issuance boundary
	if _, err := svc.Provision(ctx, "u_1", "b@x.com", "Bad"); !errors.Is(err, ErrInvalidUser) {
		t.Fatalf("expected ErrInvalidUser for id with separator, got %v", err)
	}
	if _, err := svc.Provision(ctx, "", "b@x.com", "Bad"); !errors.Is(err, ErrInvalidUser) {
		t.Fatalf("expected ErrInvalidUser for empty id, got %v", err)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	svc := NewService(openTestDB(t))
	if _, err := svc.GetUser(context.Background(), "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestSearchUsers_SubstringMatchAndExclusion(t *testing.T) {
	svc := NewService(openTestDB(t))
	ctx := context.Background()

	seed(t, svc, "u1", "a@x.com", "Alice")
	seed(t, svc, "u2", "b@x.com", "Alicia")
	seed(t, svc, "u3", "c@x.com", "Bob")

	got, err := svc.SearchUsers(ctx, "ali", "u1")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].ID != "u2" {
		t.Fatalf("expected only u2 (caller excluded), got %+v", got)
	}

	// match on email too, case-insensitive
	got, err = svc.SearchUsers(ctx, "C@X", "u1")
	if err != nil {
		t.Fatalf("search by email: %v", err)
	}
	if len(got) != 1 || got[0].ID != "u3" {
		t.Fatalf("expected u3 by email, got %+v", got)
	}
}

func TestSearchUsers_BlankQueryYieldsNothing(t *testing.T) {
	svc := NewService(openTestDB(t))
	seed(t, svc, "u1", "a@x.com", "Alice")

	got, err := svc.SearchUsers(context.Background(), "   ", "zz")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("blank query must not dump the directory, got %d rows", len(got))
	}
}
