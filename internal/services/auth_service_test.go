package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shosatojp/kakeibo-back/internal/core"
)

func newAuthFixture() (*AuthService, *memStore) {
	store := newMemStore()
	return NewAuthService(store, SHA256Digester{}, 8), store
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name     string
		userName string
		password string
		wantErr  error
	}{
		{
			name:     "valid registration",
			userName: "alice",
			password: "correct horse",
			wantErr:  nil,
		},
		{
			name:     "empty user name",
			userName: "   ",
			password: "correct horse",
			wantErr:  core.ErrValidation,
		},
		{
			name:     "password below policy floor",
			userName: "bob",
			password: "short",
			wantErr:  core.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newAuthFixture()
			_, err := svc.Register(context.Background(), tt.userName, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Register() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuthService_Register_DuplicateKeepsFirstDigest(t *testing.T) {
	svc, store := newAuthFixture()
	ctx := context.Background()

	id, err := svc.Register(ctx, "alice", "first password")
	if err != nil {
		t.Fatalf("first Register() error = %v", err)
	}

	_, err = svc.Register(ctx, "alice", "second password")
	if !errors.Is(err, core.ErrConflict) {
		t.Fatalf("second Register() error = %v, want core.ErrConflict", err)
	}

	u, err := store.GetUserByID(ctx, id)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if want := (SHA256Digester{}).Digest("first password"); u.PasswordDigest != want {
		t.Errorf("stored digest changed after conflict: got %q, want %q", u.PasswordDigest, want)
	}
}

func TestAuthService_Verify(t *testing.T) {
	svc, _ := newAuthFixture()
	ctx := context.Background()
	if _, err := svc.Register(ctx, "alice", "correct horse"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	tests := []struct {
		name     string
		userName string
		password string
		wantErr  error
	}{
		{
			name:     "matching digest",
			userName: "alice",
			password: "correct horse",
			wantErr:  nil,
		},
		{
			name:     "wrong password",
			userName: "alice",
			password: "wrong horse",
			wantErr:  core.ErrAuthFailed,
		},
		{
			name:     "unknown user",
			userName: "mallory",
			password: "correct horse",
			wantErr:  core.ErrAuthFailed,
		},
		{
			name:     "missing user name",
			userName: "",
			password: "correct horse",
			wantErr:  core.ErrAuthFailed,
		},
		{
			name:     "missing password",
			userName: "alice",
			password: "",
			wantErr:  core.ErrAuthFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := svc.Verify(ctx, tt.userName, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Verify() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && (user == nil || user.UserName != tt.userName) {
				t.Errorf("Verify() user = %+v, want %q", user, tt.userName)
			}
		})
	}
}

func TestAuthService_UserNameAvailable(t *testing.T) {
	svc, _ := newAuthFixture()
	ctx := context.Background()
	if _, err := svc.Register(ctx, "alice", "correct horse"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	tests := []struct {
		name     string
		userName string
		want     bool
	}{
		{"taken", "alice", false},
		{"free", "bob", true},
		{"blank", "  ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.UserNameAvailable(ctx, tt.userName)
			if err != nil {
				t.Fatalf("UserNameAvailable() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("UserNameAvailable(%q) = %v, want %v", tt.userName, got, tt.want)
			}
		})
	}
}

func TestAuthService_LookupUserName(t *testing.T) {
	svc, _ := newAuthFixture()
	ctx := context.Background()
	id, err := svc.Register(ctx, "alice", "correct horse")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	name, err := svc.LookupUserName(ctx, id)
	if err != nil {
		t.Fatalf("LookupUserName() error = %v", err)
	}
	if name != "alice" {
		t.Errorf("LookupUserName() = %q, want %q", name, "alice")
	}

	if _, err := svc.LookupUserName(ctx, id+100); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("LookupUserName(unknown) error = %v, want core.ErrNotFound", err)
	}
}
