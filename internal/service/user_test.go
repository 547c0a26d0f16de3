package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jenilmangukiya/blog-backend/internal/apperror"
	"github.com/jenilmangukiya/blog-backend/internal/media"
	"github.com/jenilmangukiya/blog-backend/internal/model"
)

func newTestUserService(t *testing.T) (*UserService, *mockUserRepo, *mockMedia) {
	t.Helper()
	repo := newMockUserRepo()
	host := &mockMedia{}
	return NewUserService(repo, host, discardLogger()), repo, host
}

func seedUser(t *testing.T, repo *mockUserRepo, email string, role model.Role) *model.User {
	t.Helper()
	u := &model.User{Email: email, FullName: email, Role: role, PasswordHash: "x"}
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("seeding %s: %v", email, err)
	}
	return u
}

func ptr[T any](v T) *T { return &v }

func TestUserCurrent(t *testing.T) {
	svc, repo, _ := newTestUserService(t)
	alice := seedUser(t, repo, "alice@example.com", model.RoleUser)

	got, err := svc.Current(context.Background(), alice)
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if got.Email != alice.Email {
		t.Errorf("Email = %q, want %q", got.Email, alice.Email)
	}

	if _, err := svc.Current(context.Background(), nil); !errors.Is(err, apperror.ErrUnauthenticated) {
		t.Errorf("Current(nil) error = %v, want ErrUnauthenticated", err)
	}
}

func TestUserList(t *testing.T) {
	svc, repo, _ := newTestUserService(t)
	root := seedUser(t, repo, "root@example.com", model.RoleSuperAdmin)
	alice := seedUser(t, repo, "alice@example.com", model.RoleUser)
	for i := 0; i < 3; i++ {
		seedUser(t, repo, fmt.Sprintf("u%d@example.com", i), model.RoleUser)
	}

	if _, err := svc.List(context.Background(), alice, 1, 10); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("List() by plain user error = %v, want ErrForbidden", err)
	}

	page, err := svc.List(context.Background(), root, 2, 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if page.TotalDocs != 5 || page.TotalPages != 3 || len(page.Docs) != 2 {
		t.Errorf("page = %+v", page)
	}
	if !page.HasPrevPage || !page.HasNextPage {
		t.Errorf("middle page should have both neighbours: %+v", page)
	}
}

func TestUserUpdateInfo(t *testing.T) {
	svc, repo, _ := newTestUserService(t)
	root := seedUser(t, repo, "root@example.com", model.RoleSuperAdmin)
	alice := seedUser(t, repo, "alice@example.com", model.RoleUser)
	bob := seedUser(t, repo, "bob@example.com", model.RoleUser)
	ctx := context.Background()

	t.Run("owner updates and input is normalized", func(t *testing.T) {
		got, err := svc.UpdateInfo(ctx, alice, alice.ID, UserInfoInput{
			FullName: ptr("  Alice B "),
			Email:    ptr(" Alice.B@Example.com"),
		})
		if err != nil {
			t.Fatalf("UpdateInfo() error = %v", err)
		}
		if got.FullName != "alice b" || got.Email != "alice.b@example.com" {
			t.Errorf("got %q / %q", got.FullName, got.Email)
		}
	})

	t.Run("superadmin updates someone else", func(t *testing.T) {
		if _, err := svc.UpdateInfo(ctx, root, bob.ID, UserInfoInput{FullName: ptr("Robert")}); err != nil {
			t.Fatalf("UpdateInfo() error = %v", err)
		}
	})

	tests := []struct {
		name    string
		actor   *model.User
		target  string
		in      UserInfoInput
		wantErr error
	}{
		{"stranger", bob, alice.ID, UserInfoInput{FullName: ptr("x")}, apperror.ErrForbidden},
		{"anonymous", nil, alice.ID, UserInfoInput{FullName: ptr("x")}, apperror.ErrForbidden},
		{"nothing to update", alice, alice.ID, UserInfoInput{}, apperror.ErrValidation},
		{"blank name", alice, alice.ID, UserInfoInput{FullName: ptr("   ")}, apperror.ErrValidation},
		{"bad email", alice, alice.ID, UserInfoInput{Email: ptr("not-an-email")}, apperror.ErrValidation},
		{"email taken", alice, alice.ID, UserInfoInput{Email: ptr("bob@example.com")}, apperror.ErrConflict},
		{"missing user", root, "user-999", UserInfoInput{FullName: ptr("x")}, apperror.ErrNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.UpdateInfo(ctx, tc.actor, tc.target, tc.in)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("UpdateInfo() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestUserUpdateAvatar(t *testing.T) {
	svc, repo, host := newTestUserService(t)
	alice := seedUser(t, repo, "alice@example.com", model.RoleUser)
	ctx := context.Background()

	first, err := svc.UpdateAvatar(ctx, alice, image("a.png"))
	if err != nil {
		t.Fatalf("UpdateAvatar() error = %v", err)
	}
	if first.AvatarURL == "" {
		t.Fatal("AvatarURL not set")
	}
	if len(host.removed) != 0 {
		t.Errorf("removed %v on first upload", host.removed)
	}

	second, err := svc.UpdateAvatar(ctx, alice, image("b.png"))
	if err != nil {
		t.Fatalf("UpdateAvatar() error = %v", err)
	}
	if second.AvatarURL == first.AvatarURL {
		t.Error("AvatarURL did not change")
	}
	if len(host.removed) != 1 || host.removed[0] != first.AvatarURL {
		t.Errorf("removed = %v, want [%s]", host.removed, first.AvatarURL)
	}
}

func TestUserUpdateAvatar_UploadErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{"too large", fmt.Errorf("%w: limit", media.ErrTooLarge), apperror.ErrValidation},
		{"not an image", fmt.Errorf("%w: text/plain", media.ErrUnsupportedType), apperror.ErrValidation},
		{"storage not configured", media.ErrUnavailable, apperror.ErrInternal},
		{"network", errors.New("connection reset"), apperror.ErrInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, repo, host := newTestUserService(t)
			alice := seedUser(t, repo, "alice@example.com", model.RoleUser)
			host.uploadErr = tc.err

			_, err := svc.UpdateAvatar(context.Background(), alice, image("a.png"))
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("UpdateAvatar() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestUserDelete(t *testing.T) {
	svc, repo, host := newTestUserService(t)
	root := seedUser(t, repo, "root@example.com", model.RoleSuperAdmin)
	alice := seedUser(t, repo, "alice@example.com", model.RoleUser)
	bob := seedUser(t, repo, "bob@example.com", model.RoleUser)
	ctx := context.Background()

	avatarURL := "https://cdn.test/blog-backend/alice.png"
	repo.stored(alice.ID).AvatarURL = avatarURL

	if err := svc.Delete(ctx, bob, alice.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("Delete() by plain user error = %v, want ErrForbidden", err)
	}

	// Avatar cleanup failing must not fail the delete.
	host.removeErr = errors.New("bucket gone")
	if err := svc.Delete(ctx, root, alice.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetUserByID(ctx, alice.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("user still present after Delete(): %v", err)
	}

	if err := svc.Delete(ctx, root, alice.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestUserDelete_RemovesAvatar(t *testing.T) {
	svc, repo, host := newTestUserService(t)
	root := seedUser(t, repo, "root@example.com", model.RoleSuperAdmin)
	alice := seedUser(t, repo, "alice@example.com", model.RoleUser)
	repo.stored(alice.ID).AvatarURL = "https://cdn.test/blog-backend/alice.png"

	if err := svc.Delete(context.Background(), root, alice.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(host.removed) != 1 || host.removed[0] != "https://cdn.test/blog-backend/alice.png" {
		t.Errorf("removed = %v", host.removed)
	}
}

func TestUserService_StoreFailureIsInternal(t *testing.T) {
	svc, repo, _ := newTestUserService(t)
	alice := seedUser(t, repo, "alice@example.com", model.RoleUser)
	repo.failWith = errDiskFull

	if _, err := svc.Current(context.Background(), alice); !errors.Is(err, apperror.ErrInternal) {
		t.Errorf("Current() error = %v, want ErrInternal", err)
	}
}
