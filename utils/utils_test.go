package utils_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"taskhub/utils"
)

func TestPage(t *testing.T) {
	cases := []struct {
		page, limit                     int
		wantPage, wantLimit, wantOffset int
	}{
		{0, 0, 1, utils.DefaultPageSize, 0},
		{3, 10, 3, 10, 20},
		{2, 1000, 2, utils.MaxPageSize, utils.MaxPageSize},
	}
	for _, tc := range cases {
		p, l, o := utils.Page(tc.page, tc.limit)
		if p != tc.wantPage || l != tc.wantLimit || o != tc.wantOffset {
			t.Errorf("Page(%d,%d) = %d,%d,%d want %d,%d,%d",
				tc.page, tc.limit, p, l, o, tc.wantPage, tc.wantLimit, tc.wantOffset)
		}
	}
}

func TestTotalPages(t *testing.T) {
	if got := utils.TotalPages(0, 20); got != 0 {
		t.Errorf("TotalPages(0,20) = %d", got)
	}
	if got := utils.TotalPages(41, 20); got != 3 {
		t.Errorf("TotalPages(41,20) = %d, want 3", got)
	}
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	ti := utils.NewTokenIssuer("0123456789abcdef0123456789abcdef", time.Hour)
	token, exp, err := ti.Issue("user-1", "a@example.com", "USER")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Errorf("expiry %v is not in the future", exp)
	}
	claims, err := ti.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.UserID != "user-1" || claims.Role != "USER" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestTokenIssuer_RejectsOtherSecret(t *testing.T) {
	a := utils.NewTokenIssuer("0123456789abcdef0123456789abcdef", time.Hour)
	b := utils.NewTokenIssuer("fedcba9876543210fedcba9876543210", time.Hour)
	token, _, err := a.Issue("user-1", "a@example.com", "USER")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := b.Parse(token); err == nil {
		t.Fatal("expected parse failure with a different secret")
	}
}

func TestTokenIssuer_Expired(t *testing.T) {
	ti := utils.NewTokenIssuer("0123456789abcdef0123456789abcdef", -time.Minute)
	token, _, err := ti.Issue("user-1", "a@example.com", "USER")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := ti.Parse(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws?token=q", nil)
	if got := utils.BearerToken(r); got != "q" {
		t.Errorf("query token = %q", got)
	}
	r.Header.Set("Authorization", "Bearer h")
	if got := utils.BearerToken(r); got != "h" {
		t.Errorf("header token = %q", got)
	}
	if got := utils.ParseBearer("Basic abc"); got != "" {
		t.Errorf("ParseBearer(Basic) = %q", got)
	}
}
