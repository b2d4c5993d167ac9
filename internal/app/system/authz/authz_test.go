package authz_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/residencyhub/internal/app/system/auth"
	"github.com/dalemusser/residencyhub/internal/app/system/authz"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testUserID = "507f1f77bcf86cd799439011"

func requestAs(role string) *http.Request {
	req := httptest.NewRequest("GET", "/", nil)
	return auth.WithTestUser(req, &auth.SessionUser{ID: testUserID, Name: "Test User", Role: role})
}

func TestRoleHelpers(t *testing.T) {
	tests := []struct {
		role                   string
		admin, tutor, resident bool
	}{
		{"admin", true, false, false},
		{"Tutor", false, true, false},
		{"resident", false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			r := requestAs(tt.role)
			if authz.IsAdmin(r) != tt.admin || authz.IsTutor(r) != tt.tutor || authz.IsResident(r) != tt.resident {
				t.Errorf("role helpers disagree for %q", tt.role)
			}
		})
	}
}

func TestRoleHelpers_NoUser(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	if authz.IsAdmin(r) || authz.IsTutor(r) || authz.IsResident(r) {
		t.Error("expected no role for anonymous request")
	}
	if role, ok := authz.Role(r); ok || role != "visitor" {
		t.Errorf("Role() = %q, %v", role, ok)
	}
}

func TestUserCtx_MalformedID(t *testing.T) {
	req := auth.WithTestUser(httptest.NewRequest("GET", "/", nil), &auth.SessionUser{ID: "not-an-id", Role: "admin"})
	if _, _, _, ok := authz.UserCtx(req); ok {
		t.Error("expected malformed session ID to fail closed")
	}
	if authz.IsAdmin(req) {
		t.Error("expected IsAdmin false for malformed session ID")
	}
}

func TestCurrentActor(t *testing.T) {
	a, ok := authz.CurrentActor(requestAs("ADMIN"))
	if !ok {
		t.Fatal("expected actor")
	}
	want, _ := primitive.ObjectIDFromHex(testUserID)
	if a.ID != want || a.Role != "admin" || !a.IsAdmin() {
		t.Errorf("CurrentActor() = %+v", a)
	}
}

func TestHasAnyRole(t *testing.T) {
	r := requestAs("tutor")
	if !authz.HasAnyRole(r, "admin", " TUTOR ") {
		t.Error("expected tutor to match")
	}
	if authz.HasAnyRole(r, "admin", "resident") {
		t.Error("expected no match")
	}
}
