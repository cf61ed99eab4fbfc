package handler

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/habitflow/internal/repository"
	"github.com/habitflow/internal/service"
	"github.com/habitflow/internal/state"
	"github.com/habitflow/internal/store"
)

func TestStatusForError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &repository.ValidationError{Field: "title", Message: "required"}, http.StatusBadRequest},
		{"permission denied", &repository.StoreError{Code: store.CodePermissionDenied}, http.StatusForbidden},
		{"not found", &repository.StoreError{Code: store.CodeNotFound}, http.StatusNotFound},
		{"already exists", &repository.StoreError{Code: store.CodeAlreadyExists}, http.StatusConflict},
		{"resource exhausted", &repository.StoreError{Code: store.CodeResourceExhausted}, http.StatusTooManyRequests},
		{"unavailable", &repository.StoreError{Code: store.CodeUnavailable}, http.StatusServiceUnavailable},
		{"unknown store code", &repository.StoreError{Code: "mystery"}, http.StatusInternalServerError},
		{"not authenticated", state.ErrNotAuthenticated, http.StatusUnauthorized},
		{"habit not found", state.ErrHabitNotFound, http.StatusNotFound},
		{"invalid credentials", service.ErrInvalidCredentials, http.StatusUnauthorized},
		{"email taken", service.ErrEmailTaken, http.StatusConflict},
		{"generic", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := statusForError(tc.err); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestRenderDescription(t *testing.T) {
	if got := renderDescription(""); got != "" {
		t.Fatalf("empty markdown must render empty, got %q", got)
	}

	got := renderDescription("**每天** 8 杯水")
	if !strings.Contains(got, "<strong>每天</strong>") {
		t.Fatalf("expected bold rendering, got %q", got)
	}

	// 脚本标签必须被消毒掉
	got = renderDescription("hello <script>alert(1)</script>")
	if strings.Contains(got, "<script>") {
		t.Fatalf("script tags must be sanitized, got %q", got)
	}
	if !strings.Contains(got, "hello") {
		t.Fatalf("plain text must survive sanitizing, got %q", got)
	}
}
