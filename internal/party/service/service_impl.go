package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ironlot/settlement/internal/party/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("party.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreatePartyRequest) (domain.Party, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Party{}, domain.ErrInvalidName
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return domain.Party{}, domain.ErrInvalidEmail
	}

	now := time.Now().UTC()
	party := domain.Party{
		ID:        s.genID.Generate(),
		Name:      name,
		Email:     email,
		Phone:     strings.TrimSpace(req.Phone),
		Metadata:  datatypes.JSONMap{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, &party); err != nil {
		return domain.Party{}, err
	}

	return party, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Party, error) {
	partyID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.Party{}, domain.ErrNotFound
	}

	party, err := s.repo.FindByID(ctx, s.db, partyID)
	if err != nil {
		return domain.Party{}, err
	}
	if party == nil {
		return domain.Party{}, domain.ErrNotFound
	}

	return *party, nil
}
