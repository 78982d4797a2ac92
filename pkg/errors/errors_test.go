package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestAppErrorMessage(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal("Failed to persist booking", cause)

	if err.Code != CodeInternal {
		t.Errorf("expected code %s, got %s", CodeInternal, err.Code)
	}
	if err.StatusCode() != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", err.StatusCode())
	}
	if !errors.Is(err, cause) {
		t.Error("expected wrapped cause to be reachable via errors.Is")
	}
}

func TestInsufficientCapacityDetails(t *testing.T) {
	err := InsufficientCapacity(5, 3)

	if err.HTTPStatus != http.StatusConflict {
		t.Errorf("expected status 409, got %d", err.HTTPStatus)
	}
	if err.Details["available"] != 3 {
		t.Errorf("expected available detail 3, got %v", err.Details["available"])
	}
	if err.Details["requested"] != 5 {
		t.Errorf("expected requested detail 5, got %v", err.Details["requested"])
	}
}

func TestValidationStatus(t *testing.T) {
	err := Validation("Booking validation failed", map[string]any{"field": "quantity"})
	if err.HTTPStatus != http.StatusBadRequest {
		t.Errorf("validation errors must map to 400, got %d", err.HTTPStatus)
	}
}

func TestCompensationFailure(t *testing.T) {
	cause := errors.New("store unreachable")
	err := CompensationFailure("Could not restore slot capacity", cause)

	if err.Code != CodeCompensationFailure {
		t.Errorf("expected code %s, got %s", CodeCompensationFailure, err.Code)
	}
	if err.HTTPStatus != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", err.HTTPStatus)
	}
}

func TestAsAppError(t *testing.T) {
	plain := errors.New("boom")
	appErr := AsAppError(plain)
	if appErr.Code != CodeInternal {
		t.Errorf("plain errors must convert to internal, got %s", appErr.Code)
	}

	nf := NotFoundWithID("Experience", "abc123")
	if got := AsAppError(nf); got != nf {
		t.Error("existing AppError must be returned unchanged")
	}
	if !IsAppError(nf) {
		t.Error("IsAppError should recognize AppError values")
	}
}
