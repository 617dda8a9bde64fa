package usecase

import (
	"context"
	"errors"
	"strings"
)

type UserRegistrar interface {
	RegisterUser(ctx context.Context, userID, email string) (created bool, err error)
}

// SigninService answers POST /signin: it records the user and reports whether they are new.
type SigninService struct {
	users UserRegistrar
}

type SigninInput struct {
	UserID string
	Email  string
}

type SigninOutput struct {
	UserID  string
	Created bool
}

func NewSigninService(users UserRegistrar) (*SigninService, error) {
	if users == nil {
		return nil, errors.New("usecase: user registrar must not be nil")
	}
	return &SigninService{users: users}, nil
}

func (s *SigninService) Signin(ctx context.Context, in SigninInput) (SigninOutput, error) {
	userID := strings.TrimSpace(in.UserID)
	email := strings.TrimSpace(in.Email)
	if userID == "" || email == "" {
		return SigninOutput{}, fail(ErrorInvalidInput, "missing_identity", nil)
	}
	created, err := s.users.RegisterUser(ctx, userID, email)
	if err != nil {
		return SigninOutput{}, fail(ErrorInternal, "dynamodb_user_error", err)
	}
	return SigninOutput{UserID: userID, Created: created}, nil
}
