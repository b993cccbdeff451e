package auth

import (
	"context"
	"testing"
)

func TestIsElevated(t *testing.T) {
	tests := []struct {
		role     Role
		elevated bool
	}{
		{RoleAdmin, true},
		{RoleStaff, true},
		{RoleUser, false},
		{Role("unknown"), false},
	}

	for _, tt := range tests {
		p := Principal{ID: "u1", Role: tt.role}
		if got := IsElevated(p); got != tt.elevated {
			t.Errorf("IsElevated(%s): expected %v, got %v", tt.role, tt.elevated, got)
		}
	}
}

func TestCanActFor(t *testing.T) {
	tests := []struct {
		name      string
		principal Principal
		ownerID   string
		allowed   bool
	}{
		{"owner acting on own resource", Principal{ID: "u1", Role: RoleUser}, "u1", true},
		{"user acting on other owner", Principal{ID: "u1", Role: RoleUser}, "u2", false},
		{"staff acting on other owner", Principal{ID: "s1", Role: RoleStaff}, "u2", true},
		{"admin acting on other owner", Principal{ID: "a1", Role: RoleAdmin}, "u2", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanActFor(tt.principal, tt.ownerID); got != tt.allowed {
				t.Errorf("expected %v, got %v", tt.allowed, got)
			}
		})
	}
}

func TestPrincipalContextRoundTrip(t *testing.T) {
	ctx := context.Background()

	if _, ok := FromContext(ctx); ok {
		t.Fatal("expected no principal on empty context")
	}

	want := Principal{ID: "u1", Role: RoleUser}
	ctx = WithPrincipal(ctx, want)

	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected principal on context")
	}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}
