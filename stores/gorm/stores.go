//go:build !wasm
// +build !wasm

package gorm

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	sa "github.com/panyam/stackauth"
)

// AutoMigrate runs database migrations for all stackauth tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&UserModel{},
		&ChannelModel{},
	)
}

// GORMUser implements the sa.User interface
type GORMUser struct {
	model *UserModel
}

func (u *GORMUser) Id() string              { return u.model.ID }
func (u *GORMUser) Profile() map[string]any { return u.model.Profile }

// UserStore implements sa.UserStore using GORM
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) CreateUser(userId string, isActive bool, profile map[string]any) (sa.User, error) {
	model := &UserModel{
		ID:       userId,
		IsActive: isActive,
		Profile:  profile,
	}
	if err := s.db.Create(model).Error; err != nil {
		return nil, err
	}
	return &GORMUser{model: model}, nil
}

func (s *UserStore) GetUserById(userId string) (sa.User, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", userId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user not found: %s", userId)
		}
		return nil, err
	}
	return &GORMUser{model: &model}, nil
}

func (s *UserStore) SaveUser(user sa.User) error {
	var model UserModel
	return s.db.Where(UserModel{ID: user.Id()}).
		Attrs(UserModel{IsActive: true}).
		Assign(UserModel{Profile: user.Profile()}).
		FirstOrCreate(&model).Error
}

// ChannelStore implements sa.ChannelStore using GORM
type ChannelStore struct {
	db *gorm.DB
}

func NewChannelStore(db *gorm.DB) *ChannelStore {
	return &ChannelStore{db: db}
}

func (s *ChannelStore) GetChannel(provider string, identityKey string, createIfMissing bool) (*sa.Channel, bool, error) {
	var model ChannelModel
	err := s.db.First(&model, "provider = ? AND identity_key = ?", provider, identityKey).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		if createIfMissing {
			model = ChannelModel{
				Provider:    provider,
				IdentityKey: identityKey,
				Credentials: make(JSONMap),
				Profile:     make(JSONMap),
			}
			if err := s.db.Create(&model).Error; err != nil {
				return nil, false, err
			}
			return model.ToChannel(), true, nil
		}
		return nil, false, fmt.Errorf("channel not found")
	}
	if err != nil {
		return nil, false, err
	}

	return model.ToChannel(), false, nil
}

func (s *ChannelStore) SaveChannel(channel *sa.Channel) error {
	channel.Version++
	model := ChannelToModel(channel)
	return s.db.Save(model).Error
}

func (s *ChannelStore) GetChannelsByUser(userId string) ([]*sa.Channel, error) {
	var models []ChannelModel
	if err := s.db.Where("user_id = ?", userId).Find(&models).Error; err != nil {
		return nil, err
	}

	channels := make([]*sa.Channel, len(models))
	for i, m := range models {
		channels[i] = m.ToChannel()
	}
	return channels, nil
}
