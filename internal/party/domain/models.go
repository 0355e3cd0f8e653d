// Package domain contains persistence models for marketplace parties.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Party is a marketplace account that can buy or sell equipment. The same
// party may act as buyer on one invoice and seller on another; the role is a
// property of the invoice, not of the party.
type Party struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name      string            `gorm:"type:text;not null" json:"name"`
	Email     string            `gorm:"type:text;not null;index" json:"email"`
	Phone     string            `gorm:"type:text" json:"phone,omitempty"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Party) TableName() string { return "parties" }
