package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/ironlot/settlement/internal/party/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, party *domain.Party) error {
	return db.WithContext(ctx).Create(party).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Party, error) {
	var party domain.Party
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Take(&party).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &party, nil
}
