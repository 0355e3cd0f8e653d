package domain

import (
	"context"
	"errors"
)

type CreatePartyRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type Service interface {
	Create(ctx context.Context, req CreatePartyRequest) (Party, error)
	GetByID(ctx context.Context, id string) (Party, error)
}

var (
	ErrInvalidName  = errors.New("invalid_name")
	ErrInvalidEmail = errors.New("invalid_email")
	ErrNotFound     = errors.New("party_not_found")
)
