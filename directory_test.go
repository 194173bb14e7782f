package careauth

import (
	"context"
	"log/slog"
	"testing"
)

func newTestDirectory(t *testing.T) *userDirectory {
	t.Helper()

	mr, client := newTestRedis(t)
	t.Cleanup(mr.Close)

	return newUserDirectory(client, DirectoryConfig{
		UsersKey:   "auth:users",
		ProfileKey: "auth:profile",
	}, slog.Default())
}

func TestDirectoryInsertAndLookup(t *testing.T) {
	dir := newTestDirectory(t)
	ctx := context.Background()

	identity := Identity{
		FullName: "Asha Rao",
		Email:    "asha@example.com",
		Phone:    "9876543210",
		Location: "Bengaluru",
	}
	if err := dir.Insert(ctx, identity); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	byEmail, ok, err := dir.FindByEmailOrPhone(ctx, "asha@example.com")
	if err != nil || !ok {
		t.Fatalf("lookup by email: ok=%v err=%v", ok, err)
	}
	if byEmail != identity {
		t.Errorf("lookup by email = %+v, want %+v", byEmail, identity)
	}

	byPhone, ok, err := dir.FindByEmailOrPhone(ctx, "9876543210")
	if err != nil || !ok {
		t.Fatalf("lookup by phone: ok=%v err=%v", ok, err)
	}
	if byPhone.Email != identity.Email {
		t.Errorf("lookup by phone = %+v, want %+v", byPhone, identity)
	}

	if _, ok, _ := dir.FindByEmailOrPhone(ctx, "nobody@example.com"); ok {
		t.Error("lookup of unknown identifier reported a match")
	}
}

func TestDirectoryLookupIsCaseSensitive(t *testing.T) {
	dir := newTestDirectory(t)
	ctx := context.Background()

	if err := dir.Insert(ctx, Identity{Email: "asha@example.com", Phone: "9876543210"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if _, ok, _ := dir.FindByEmailOrPhone(ctx, "Asha@Example.com"); ok {
		t.Error("case-folded email matched, want exact comparison")
	}
}

func TestDirectoryDuplicateInsertIsNonFatal(t *testing.T) {
	dir := newTestDirectory(t)
	ctx := context.Background()

	identity := Identity{Email: "asha@example.com", Phone: "9876543210"}
	if err := dir.Insert(ctx, identity); err != nil {
		t.Fatalf("first Insert failed: %v", err)
	}
	if err := dir.Insert(ctx, identity); err != nil {
		t.Fatalf("duplicate Insert returned %v, want nil", err)
	}

	all, err := dir.all(ctx)
	if err != nil {
		t.Fatalf("all failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("directory holds %d entries after duplicate insert, want 1", len(all))
	}
}

func TestDirectoryExists(t *testing.T) {
	dir := newTestDirectory(t)
	ctx := context.Background()

	if err := dir.Insert(ctx, Identity{Email: "asha@example.com", Phone: "9876543210"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	ok, err := dir.Exists(ctx, "9876543210")
	if err != nil || !ok {
		t.Fatalf("Exists(phone) = %v, %v, want true", ok, err)
	}
	ok, err = dir.Exists(ctx, "1112223334")
	if err != nil || ok {
		t.Fatalf("Exists(unknown) = %v, %v, want false", ok, err)
	}
}

func TestDirectoryProfileMerge(t *testing.T) {
	dir := newTestDirectory(t)
	ctx := context.Background()

	if err := dir.SaveProfile(ctx, Identity{FullName: "Asha Rao", Email: "asha@example.com"}); err != nil {
		t.Fatalf("SaveProfile failed: %v", err)
	}
	// Empty fields in an update must not erase stored values.
	if err := dir.SaveProfile(ctx, Identity{Location: "Bengaluru"}); err != nil {
		t.Fatalf("SaveProfile update failed: %v", err)
	}

	profile, ok, err := dir.Profile(ctx)
	if err != nil || !ok {
		t.Fatalf("Profile: ok=%v err=%v", ok, err)
	}
	if profile.FullName != "Asha Rao" || profile.Location != "Bengaluru" {
		t.Errorf("merged profile = %+v", profile)
	}

	if err := dir.ClearProfile(ctx); err != nil {
		t.Fatalf("ClearProfile failed: %v", err)
	}
	if _, ok, _ := dir.Profile(ctx); ok {
		t.Error("profile still present after ClearProfile")
	}
}
