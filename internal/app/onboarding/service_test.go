package onboarding

import (
	"context"
	"errors"
	"math/rand"
	"testing"
)

type mockAccounts struct {
	updates int
	lastID  string
	err     error
}

func (m *mockAccounts) UpdateProfile(ctx context.Context, userID, username, displayName string) error {
	m.updates++
	m.lastID = userID
	return m.err
}

type mockBonus struct {
	grants     int
	lastID     string
	lastAmount int64
	granted    bool
	err        error
}

func (m *mockBonus) GrantWelcomeBonusOnce(ctx context.Context, userID string, amount int64, metadata map[string]interface{}) (bool, error) {
	m.grants++
	m.lastID = userID
	m.lastAmount = amount
	return m.granted, m.err
}

func TestOnboardNewUser(t *testing.T) {
	accounts := &mockAccounts{}
	bonus := &mockBonus{granted: true}
	svc := NewService(accounts, bonus, rand.New(rand.NewSource(1)))

	result, err := svc.OnboardNewUser(context.Background(), "user-1", 1000)
	if err != nil {
		t.Fatalf("onboard: %v", err)
	}
	if !result.WelcomeBonusGranted {
		t.Error("expected bonus granted")
	}
	if result.ProfileUpdateErr != nil {
		t.Errorf("unexpected profile error: %v", result.ProfileUpdateErr)
	}
	if accounts.updates != 1 || accounts.lastID != "user-1" {
		t.Errorf("accounts calls = %d for %q", accounts.updates, accounts.lastID)
	}
	if bonus.grants != 1 || bonus.lastAmount != 1000 {
		t.Errorf("bonus calls = %d for amount %d", bonus.grants, bonus.lastAmount)
	}
}

func TestOnboardNewUserBonusAlreadyGranted(t *testing.T) {
	svc := NewService(&mockAccounts{}, &mockBonus{granted: false}, rand.New(rand.NewSource(2)))

	result, err := svc.OnboardNewUser(context.Background(), "user-1", 1000)
	if err != nil {
		t.Fatalf("onboard: %v", err)
	}
	if result.WelcomeBonusGranted {
		t.Error("repeat grant must report granted=false")
	}
}

func TestOnboardNewUserProfileErrorIsNonFatal(t *testing.T) {
	accounts := &mockAccounts{err: errors.New("profile down")}
	bonus := &mockBonus{granted: true}
	svc := NewService(accounts, bonus, rand.New(rand.NewSource(3)))

	result, err := svc.OnboardNewUser(context.Background(), "user-1", 1000)
	if err != nil {
		t.Fatalf("profile failure must not abort onboarding: %v", err)
	}
	if result.ProfileUpdateErr == nil {
		t.Error("profile error not surfaced")
	}
	if bonus.grants != 1 {
		t.Error("bonus grant skipped after profile failure")
	}
}

func TestOnboardNewUserBonusErrorIsFatal(t *testing.T) {
	bonus := &mockBonus{err: errors.New("storage down")}
	svc := NewService(&mockAccounts{}, bonus, rand.New(rand.NewSource(4)))

	if _, err := svc.OnboardNewUser(context.Background(), "user-1", 1000); err == nil {
		t.Error("bonus failure must abort onboarding")
	}
}

func TestGenerateFriendlyName(t *testing.T) {
	svc := NewService(&mockAccounts{}, &mockBonus{}, rand.New(rand.NewSource(5)))

	name := svc.generateFriendlyName()
	if name == "" {
		t.Fatal("empty name")
	}
	if len(name) < 5 {
		t.Errorf("name %q suspiciously short", name)
	}
}
