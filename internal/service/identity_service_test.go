package service_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/blog-content-api/internal/models"
	"github.com/blog-content-api/internal/upload"
)

func TestIdentityService_Register(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	user := env.register(t, "alice")
	if user.WalletBalance != 0 || user.IsVIP {
		t.Errorf("New accounts start at balance 0 without VIP, got %+v", user)
	}
	if user.PasswordHash == "" || user.PasswordHash == "secret1" {
		t.Error("Password must be stored as a digest")
	}

	// Handle is checked before email
	_, err := env.services.Identity.Register(ctx, &models.RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "secret1", ConfirmPassword: "secret1",
	})
	if !errors.Is(err, models.ErrDuplicateHandle) {
		t.Errorf("Expected ErrDuplicateHandle, got %v", err)
	}

	_, err = env.services.Identity.Register(ctx, &models.RegisterRequest{
		Username: "alice2", Email: "alice@example.com", Password: "secret1", ConfirmPassword: "secret1",
	})
	if !errors.Is(err, models.ErrDuplicateEmail) {
		t.Errorf("Expected ErrDuplicateEmail, got %v", err)
	}

	_, err = env.services.Identity.Register(ctx, &models.RegisterRequest{
		Username: "bob", Email: "bob@example.com", Password: "secret1", ConfirmPassword: "other12",
	})
	if models.KindOf(err) != models.KindValidation {
		t.Errorf("Expected validation error for mismatched confirmation, got %v", err)
	}
}

func TestIdentityService_AuthenticateIndistinguishable(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.register(t, "alice")

	user, err := env.services.Identity.Authenticate(ctx, "alice", "secret1")
	if err != nil || user == nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	_, wrongPassword := env.services.Identity.Authenticate(ctx, "alice", "nope")
	_, unknownUser := env.services.Identity.Authenticate(ctx, "nobody", "secret1")

	if !errors.Is(wrongPassword, models.ErrInvalidCredentials) || !errors.Is(unknownUser, models.ErrInvalidCredentials) {
		t.Fatalf("Expected ErrInvalidCredentials for both, got %v and %v", wrongPassword, unknownUser)
	}
	if wrongPassword.Error() != unknownUser.Error() {
		t.Errorf("Errors must be indistinguishable: %q vs %q", wrongPassword, unknownUser)
	}
}

func TestIdentityService_Login(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	alice := env.register(t, "alice")

	session, err := env.services.Identity.Login(ctx, &models.LoginRequest{Username: "alice", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	userID, err := env.services.Tokens.Parse(session.Token)
	if err != nil {
		t.Fatalf("Issued token does not parse: %v", err)
	}
	if userID != alice.ID {
		t.Errorf("Token subject %q, want %q", userID, alice.ID)
	}
}

func TestIdentityService_ChangePassword(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	alice := env.register(t, "alice")

	err := env.services.Identity.ChangePassword(ctx, alice.ID, &models.ChangePasswordRequest{
		OldPassword: "wrong1", NewPassword: "newpass1", ConfirmPassword: "newpass1",
	})
	if !errors.Is(err, models.ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials, got %v", err)
	}

	err = env.services.Identity.ChangePassword(ctx, alice.ID, &models.ChangePasswordRequest{
		OldPassword: "secret1", NewPassword: "newpass1", ConfirmPassword: "newpass2",
	})
	if models.KindOf(err) != models.KindValidation {
		t.Errorf("Expected validation error, got %v", err)
	}

	err = env.services.Identity.ChangePassword(ctx, alice.ID, &models.ChangePasswordRequest{
		OldPassword: "secret1", NewPassword: "newpass1", ConfirmPassword: "newpass1",
	})
	if err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	if _, err := env.services.Identity.Authenticate(ctx, "alice", "secret1"); err == nil {
		t.Error("Old password should no longer work")
	}
	if _, err := env.services.Identity.Authenticate(ctx, "alice", "newpass1"); err != nil {
		t.Errorf("New password should work, got %v", err)
	}
}

func TestIdentityService_Avatar(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	alice := env.register(t, "alice")

	user, err := env.services.Identity.SetAvatar(ctx, alice.ID, "https://cdn.example.com/a.png")
	if err != nil {
		t.Fatalf("SetAvatar failed: %v", err)
	}
	if user.Avatar == nil || *user.Avatar != "https://cdn.example.com/a.png" {
		t.Errorf("Unexpected avatar %v", user.Avatar)
	}

	user, err = env.services.Identity.UploadAvatar(ctx, alice.ID, "me.jpg", bytes.NewReader([]byte("jpeg")))
	if err != nil {
		t.Fatalf("UploadAvatar failed: %v", err)
	}
	if user.Avatar == nil || !strings.HasPrefix(*user.Avatar, upload.URLPrefix) {
		t.Errorf("Expected uploaded avatar reference, got %v", user.Avatar)
	}

	_, err = env.services.Identity.UploadAvatar(ctx, alice.ID, "me.bmp", bytes.NewReader([]byte("bmp")))
	if !errors.Is(err, upload.ErrUnsupportedType) {
		t.Errorf("Expected ErrUnsupportedType, got %v", err)
	}

	if _, err := env.services.Identity.SetAvatar(ctx, "missing", "x.png"); !errors.Is(err, models.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestIdentityService_Profile(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	alice := env.register(t, "alice")

	for i := 0; i < models.ProfileArticles+2; i++ {
		env.createArticle(t, alice.ID, models.Visibility{})
	}
	env.createArticle(t, alice.ID, models.Visibility{IsPrivate: true})

	profile, err := env.services.Identity.Profile(ctx, "alice")
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	if profile.User.Email != "" {
		t.Error("Profile must not expose the email")
	}
	if len(profile.Articles) != models.ProfileArticles {
		t.Errorf("Expected %d articles, got %d", models.ProfileArticles, len(profile.Articles))
	}
	for _, a := range profile.Articles {
		if a.IsPrivate || a.Body != "" {
			t.Errorf("Profile should list public teasers only, got %+v", a)
		}
	}

	if _, err := env.services.Identity.Profile(ctx, "nobody"); !errors.Is(err, models.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}
