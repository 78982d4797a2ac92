package service

import (
	"context"
	"errors"
	"testing"

	experr "bookit/internal/experiences/errors"
	apperrors "bookit/pkg/errors"
	"bookit/pkg/model"
)

func TestGetByIDTranslatesErrors(t *testing.T) {
	tests := []struct {
		name     string
		repoErr  error
		wantCode string
	}{
		{
			name:     "not found",
			repoErr:  experr.ErrNotFound,
			wantCode: apperrors.CodeNotFound,
		},
		{
			name:     "invalid id",
			repoErr:  experr.ErrInvalidID,
			wantCode: apperrors.CodeInvalidInput,
		},
		{
			name:     "storage failure",
			repoErr:  errors.New("connection reset"),
			wantCode: apperrors.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockExperienceRepo{
				findByIDFn: func(_ context.Context, _ string) (*model.Experience, error) {
					return nil, tt.repoErr
				},
			}
			svc := NewExperienceService(repo, reservationConfig(5))

			_, err := svc.GetByID(context.Background(), "507f1f77bcf86cd799439011")
			appErr := apperrors.AsAppError(err)
			if appErr.Code != tt.wantCode {
				t.Errorf("expected %s, got %v", tt.wantCode, err)
			}
		})
	}
}

func TestGetByIDEmptyID(t *testing.T) {
	svc := NewExperienceService(&mockExperienceRepo{}, reservationConfig(5))

	_, err := svc.GetByID(context.Background(), "")
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeInvalidInput {
		t.Errorf("expected invalid input, got %v", err)
	}
}

func TestGetAllReturnsListAndCount(t *testing.T) {
	experiences := []*model.Experience{
		{ID: "a", Title: "Sunset Sailing"},
		{ID: "b", Title: "Cigar & Whisky Evening"},
	}

	repo := &mockExperienceRepo{
		findAllFn: func(_ context.Context, search string, limit int, offset int64) ([]*model.Experience, error) {
			return experiences, nil
		},
		countFn: func(_ context.Context, _ string) (int64, error) {
			return 42, nil
		},
	}
	svc := NewExperienceService(repo, reservationConfig(5))

	got, total, err := svc.GetAll(context.Background(), "", 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 experiences, got %d", len(got))
	}
	if total != 42 {
		t.Errorf("expected total 42, got %d", total)
	}
}

func TestGetAllCountFailure(t *testing.T) {
	repo := &mockExperienceRepo{
		findAllFn: func(_ context.Context, _ string, _ int, _ int64) ([]*model.Experience, error) {
			return nil, nil
		},
		countFn: func(_ context.Context, _ string) (int64, error) {
			return 0, errors.New("connection reset")
		},
	}
	svc := NewExperienceService(repo, reservationConfig(5))

	_, _, err := svc.GetAll(context.Background(), "", 10, 0)
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeInternal {
		t.Errorf("expected internal error, got %v", err)
	}
}
