package auth

import (
	"context"
	"testing"

	"github.com/mojomaniac/skillswap/internal/apperror"
	"github.com/mojomaniac/skillswap/internal/store"
)

func newTestLocalService(t *testing.T) *LocalService {
	t.Helper()
	return NewLocalService(store.NewMemoryStore(), newTestIssuer(t), nil)
}

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()
	svc := newTestLocalService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "hunter2hunter2",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if registered.Token == "" {
		t.Fatal("no token after registration")
	}

	loggedIn, err := svc.Login(ctx, "alice@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if loggedIn.User.ID != registered.User.ID {
		t.Fatalf("login resolved %q, want %q", loggedIn.User.ID, registered.User.ID)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	t.Parallel()
	svc := newTestLocalService(t)
	ctx := context.Background()

	input := RegisterInput{Username: "alice", Email: "dup@example.com", Password: "hunter2hunter2"}
	if _, err := svc.Register(ctx, input); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	_, err := svc.Register(ctx, input)
	if !apperror.IsKind(err, apperror.KindConflict) {
		t.Fatalf("second Register error = %v, want conflict", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	t.Parallel()
	svc := newTestLocalService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: "correct-horse"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, err := svc.Login(ctx, "alice@example.com", "battery-staple")
	if !apperror.IsKind(err, apperror.KindUnauthorized) {
		t.Fatalf("error = %v, want unauthorized", err)
	}
}

func TestLoginUnknownEmailIndistinguishable(t *testing.T) {
	t.Parallel()
	svc := newTestLocalService(t)

	_, err := svc.Login(context.Background(), "ghost@example.com", "whatever-pass")
	if !apperror.IsKind(err, apperror.KindUnauthorized) {
		t.Fatalf("error = %v, want unauthorized", err)
	}
}
