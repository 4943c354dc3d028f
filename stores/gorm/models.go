//go:build !wasm
// +build !wasm

package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	sa "github.com/panyam/stackauth"
)

// JSONMap is a helper type for storing JSON maps in GORM
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value any) error {
	var bytes []byte
	switch v := value.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}
	return json.Unmarshal(bytes, m)
}

// UserModel is the GORM model for users
type UserModel struct {
	ID        string    `gorm:"primaryKey;size:64"`
	IsActive  bool      `gorm:"default:true"`
	Profile   JSONMap   `gorm:"type:jsonb"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string {
	return "users"
}

// ChannelModel is the GORM model for provider channels
type ChannelModel struct {
	Provider    string    `gorm:"primaryKey;size:32"`
	IdentityKey string    `gorm:"primaryKey;size:320"`
	UserID      string    `gorm:"size:64;index"`
	Credentials JSONMap   `gorm:"type:jsonb"`
	Profile     JSONMap   `gorm:"type:jsonb"`
	Version     int       `gorm:"default:0"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (ChannelModel) TableName() string {
	return "channels"
}

func (m *ChannelModel) ToChannel() *sa.Channel {
	return &sa.Channel{
		Provider:    m.Provider,
		IdentityKey: m.IdentityKey,
		UserID:      m.UserID,
		Credentials: m.Credentials,
		Profile:     m.Profile,
		Version:     m.Version,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func ChannelToModel(c *sa.Channel) *ChannelModel {
	return &ChannelModel{
		Provider:    c.Provider,
		IdentityKey: c.IdentityKey,
		UserID:      c.UserID,
		Credentials: JSONMap(c.Credentials),
		Profile:     JSONMap(c.Profile),
		Version:     c.Version,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}
