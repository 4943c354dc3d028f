package fs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	sa "github.com/panyam/stackauth"
)

// FSUser implements the stackauth.User interface
type FSUser struct {
	UserId      string         `json:"user_id"`
	IsActive    bool           `json:"is_active"`
	UserProfile map[string]any `json:"profile"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (u *FSUser) Id() string              { return u.UserId }
func (u *FSUser) Profile() map[string]any { return u.UserProfile }

// FSUserStore stores users as JSON files under <StoragePath>/users
type FSUserStore struct {
	StoragePath string
	mu          sync.Mutex
}

func NewFSUserStore(storagePath string) *FSUserStore {
	return &FSUserStore{StoragePath: storagePath}
}

func (s *FSUserStore) getUserPath(userId string) string {
	return filepath.Join(s.StoragePath, "users", safeName(userId)+".json")
}

func (s *FSUserStore) CreateUser(userId string, isActive bool, profile map[string]any) (sa.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := os.Stat(s.getUserPath(userId)); err == nil {
		return nil, fmt.Errorf("user already exists: %s", userId)
	}
	now := time.Now()
	user := &FSUser{
		UserId:      userId,
		IsActive:    isActive,
		UserProfile: profile,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return user, s.write(user)
}

func (s *FSUserStore) GetUserById(userId string) (sa.User, error) {
	data, err := os.ReadFile(s.getUserPath(userId))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("user not found: %s", userId)
		}
		return nil, err
	}

	var user FSUser
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *FSUserStore) SaveUser(user sa.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fsUser, ok := user.(*FSUser)
	if !ok {
		fsUser = &FSUser{
			UserId:      user.Id(),
			IsActive:    true,
			UserProfile: user.Profile(),
			CreatedAt:   time.Now(),
		}
		if existing, err := s.GetUserById(user.Id()); err == nil {
			fsUser.CreatedAt = existing.(*FSUser).CreatedAt
			fsUser.IsActive = existing.(*FSUser).IsActive
		}
	}
	fsUser.UpdatedAt = time.Now()
	return s.write(fsUser)
}

func (s *FSUserStore) write(user *FSUser) error {
	data, err := json.MarshalIndent(user, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomicFile(s.getUserPath(user.UserId), data)
}
