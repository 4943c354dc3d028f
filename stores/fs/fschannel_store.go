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

// FSChannelStore stores channels as JSON files under <StoragePath>/channels
type FSChannelStore struct {
	StoragePath string
	mu          sync.Mutex
}

func NewFSChannelStore(storagePath string) *FSChannelStore {
	return &FSChannelStore{StoragePath: storagePath}
}

func (s *FSChannelStore) channelsDir() string {
	return filepath.Join(s.StoragePath, "channels")
}

func (s *FSChannelStore) getChannelPath(provider, identityKey string) string {
	filename := fmt.Sprintf("%s_%s.json", safeName(provider), safeName(identityKey))
	return filepath.Join(s.channelsDir(), filename)
}

func (s *FSChannelStore) GetChannel(provider string, identityKey string, createIfMissing bool) (*sa.Channel, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.getChannelPath(provider, identityKey))
	if err != nil {
		if os.IsNotExist(err) && createIfMissing {
			now := time.Now()
			channel := &sa.Channel{
				Provider:    provider,
				IdentityKey: identityKey,
				Credentials: make(map[string]any),
				Profile:     make(map[string]any),
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := s.write(channel); err != nil {
				return nil, false, err
			}
			return channel, true, nil
		}
		if os.IsNotExist(err) {
			return nil, false, fmt.Errorf("channel not found")
		}
		return nil, false, err
	}

	var channel sa.Channel
	if err := json.Unmarshal(data, &channel); err != nil {
		return nil, false, err
	}
	return &channel, false, nil
}

func (s *FSChannelStore) SaveChannel(channel *sa.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	channel.UpdatedAt = time.Now()
	if channel.CreatedAt.IsZero() {
		channel.CreatedAt = channel.UpdatedAt
	}
	channel.Version++
	return s.write(channel)
}

func (s *FSChannelStore) write(channel *sa.Channel) error {
	data, err := json.MarshalIndent(channel, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomicFile(s.getChannelPath(channel.Provider, channel.IdentityKey), data)
}

func (s *FSChannelStore) GetChannelsByUser(userId string) ([]*sa.Channel, error) {
	entries, err := os.ReadDir(s.channelsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return []*sa.Channel{}, nil
		}
		return nil, err
	}

	channels := []*sa.Channel{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.channelsDir(), entry.Name()))
		if err != nil {
			continue
		}

		var channel sa.Channel
		if err := json.Unmarshal(data, &channel); err != nil {
			continue
		}

		if channel.UserID == userId {
			channels = append(channels, &channel)
		}
	}

	return channels, nil
}
