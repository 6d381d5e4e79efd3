package services_test

import (
	"testing"
	"time"

	"taskhub/apperr"
	"taskhub/models"
	"taskhub/testutil"
	"taskhub/utils"
)

func TestAuth_RegisterAndLogin(t *testing.T) {
	e := newEnv(t)
	ctx := testutil.TestContext(t)

	reg, err := e.auth.Register(ctx, "  Jane@Example.com ", "s3cretpass", "Jane")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if reg.User.Email != "jane@example.com" || reg.User.Role != models.RoleUser || !reg.User.IsActive {
		t.Errorf("registered user = %+v", reg.User)
	}

	claims, err := utils.NewTokenIssuer(testSecret, time.Hour).Parse(reg.Token)
	if err != nil {
		t.Fatalf("Parse token: %v", err)
	}
	if claims.UserID != reg.User.ID || claims.Role != string(models.RoleUser) {
		t.Errorf("claims = %+v", claims)
	}

	login, err := e.auth.Login(ctx, "JANE@example.com", "s3cretpass")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.User.LastLoginAt == nil {
		t.Error("LastLoginAt not recorded")
	}

	if _, err := e.auth.Register(ctx, "jane@example.com", "s3cretpass", ""); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("duplicate register err = %v, want Conflict", err)
	}
}

func TestAuth_RegisterValidation(t *testing.T) {
	e := newEnv(t)
	ctx := testutil.TestContext(t)

	cases := []struct {
		name, email, password string
	}{
		{"no email", "", "s3cretpass"},
		{"bad email", "not-an-email", "s3cretpass"},
		{"short password", "ok@example.com", "short"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := e.auth.Register(ctx, tc.email, tc.password, ""); !apperr.Is(err, apperr.KindBadRequest) {
				t.Errorf("err = %v, want BadRequest", err)
			}
		})
	}
}

func TestAuth_AdminPattern(t *testing.T) {
	e := newEnv(t)
	ctx := testutil.TestContext(t)

	res, err := e.auth.Register(ctx, "admin@example.com", "s3cretpass", "Root")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.User.Role != models.RoleAdmin {
		t.Errorf("role = %s, want ADMIN", res.User.Role)
	}
}

func TestAuth_LoginFailures(t *testing.T) {
	e := newEnv(t)
	ctx := testutil.TestContext(t)
	u := e.fx.CreateUser("user@example.com", models.RoleUser)

	if _, err := e.auth.Login(ctx, u.Email, "wrong-password"); err == nil || err.Error() != "Invalid email or password" {
		t.Errorf("wrong password err = %v", err)
	}
	if _, err := e.auth.Login(ctx, "nobody@example.com", testutil.Password); err == nil || err.Error() != "Invalid email or password" {
		t.Errorf("unknown email err = %v", err)
	}

	e.fx.Suspend(u.ID)
	_, err := e.auth.Login(ctx, u.Email, testutil.Password)
	if !apperr.Is(err, apperr.KindUnauthorized) || err.Error() != "Account is suspended" {
		t.Errorf("suspended err = %v", err)
	}
}

func TestAuth_ProfileAndPassword(t *testing.T) {
	e := newEnv(t)
	ctx := testutil.TestContext(t)
	u := e.fx.CreateUser("user@example.com", models.RoleUser)
	taken := e.fx.CreateUser("taken@example.com", models.RoleUser)

	updated, err := e.auth.UpdateProfile(ctx, u.ID, testutil.Ptr("New Name"), testutil.Ptr("Renamed@example.com"))
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.Name != "New Name" || updated.Email != "renamed@example.com" {
		t.Errorf("profile = %s %s", updated.Name, updated.Email)
	}
	if _, err := e.auth.UpdateProfile(ctx, u.ID, nil, &taken.Email); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("taken email err = %v, want Conflict", err)
	}

	if err := e.auth.ChangePassword(ctx, u.ID, "wrong", "brand-new-pass"); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Errorf("wrong current password err = %v, want Unauthorized", err)
	}
	if err := e.auth.ChangePassword(ctx, u.ID, testutil.Password, "brand-new-pass"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := e.auth.Login(ctx, "renamed@example.com", "brand-new-pass"); err != nil {
		t.Errorf("login with new password: %v", err)
	}
}

func TestAuth_DeleteAccountPurgesOwnedData(t *testing.T) {
	e := newEnv(t)
	ctx := testutil.TestContext(t)
	u := e.fx.CreateUser("leaving@example.com", models.RoleUser)
	other := e.fx.CreateUser("staying@example.com", models.RoleUser)
	own := e.fx.CreateTask(models.Task{Title: "mine", CreatorID: u.ID})
	assigned := e.fx.CreateTask(models.Task{Title: "theirs", CreatorID: other.ID, AssignedToID: &u.ID})

	if err := e.auth.DeleteAccount(ctx, u.ID); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}

	var count int64
	e.db.Model(&models.Task{}).Where("id = ?", own.ID).Count(&count)
	if count != 0 {
		t.Error("created task survived account deletion")
	}
	if got := e.reloadTask(t, assigned.ID); got.AssignedToID != nil {
		t.Error("assignment to deleted user not cleared")
	}
	if _, err := e.auth.Me(ctx, u.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("Me after delete err = %v, want NotFound", err)
	}
}
