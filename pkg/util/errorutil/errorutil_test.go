package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{"domain error passes through", NewConflict("dup", nil), CodeConflict, http.StatusConflict},
		{"wrapped domain error", fmt.Errorf("wrap: %w", NewNotFound("ticket", nil)), CodeNotFound, http.StatusNotFound},
		{"no rows", pgx.ErrNoRows, CodeNotFound, http.StatusNotFound},
		{"unknown", errors.New("boom"), CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToDomainError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, got.Code)
			}
			if got.HTTPStatus != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, got.HTTPStatus)
			}
		})
	}
	if ToDomainError(nil) != nil {
		t.Error("expected nil for nil error")
	}
}

func TestIsConflict(t *testing.T) {
	if !IsConflict(NewOtherOpenTicket(nil)) {
		t.Error("expected other-open-ticket to be a conflict")
	}
	if !IsConflict(NewConflict("x", nil)) {
		t.Error("expected conflict")
	}
	if IsConflict(NewNotFound("ticket", nil)) {
		t.Error("not found is not a conflict")
	}
	if !IsNotFound(fmt.Errorf("ctx: %w", NewNotFound("queue", nil))) {
		t.Error("expected wrapped not found to match")
	}
}

func TestInternalErrorUnwraps(t *testing.T) {
	cause := errors.New("db down")
	err := NewInternalError(cause)
	if !errors.Is(err, cause) {
		t.Error("expected internal error to unwrap to cause")
	}
}
