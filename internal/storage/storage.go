package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"camvault/internal/auth"
	"camvault/internal/models"
)

type dataset struct {
	Users  map[string]models.User        `json:"users"`
	Videos map[string]models.VideoRecord `json:"videos"`
}

// Storage is the JSON-file datastore used for development and tests. All
// mutations run under the writer lock and persist atomically before they
// become visible, so the email-uniqueness check and insert form one step.
type Storage struct {
	mu       sync.RWMutex
	filePath string
	data     dataset
	// persistOverride allows tests to intercept persist operations.
	persistOverride func(dataset) error
}

func newDataset() dataset {
	return dataset{
		Users:  make(map[string]models.User),
		Videos: make(map[string]models.VideoRecord),
	}
}

// NewStorage opens (or creates) the JSON store backing file at path.
func NewStorage(path string) (*Storage, error) {
	store := &Storage{filePath: path}
	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *Storage) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	file, err := os.Open(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		s.data = newDataset()
		return nil
	} else if err != nil {
		return fmt.Errorf("open store file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&s.data); err != nil {
		if errors.Is(err, io.EOF) {
			s.data = newDataset()
			return nil
		}
		return fmt.Errorf("decode store file: %w", err)
	}

	if s.data.Users == nil {
		s.data.Users = make(map[string]models.User)
	}
	if s.data.Videos == nil {
		s.data.Videos = make(map[string]models.VideoRecord)
	}
	return nil
}

func (s *Storage) persist() error {
	if s.persistOverride != nil {
		if err := s.persistOverride(s.data); err != nil {
			return err
		}
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "store-*.json")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	tmpPath := tmpFile.Name()
	success := false
	defer func() {
		if !success {
			_ = tmpFile.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	encoder := json.NewEncoder(tmpFile)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s.data); err != nil {
		return fmt.Errorf("encode store file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("flush store file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp store file: %w", err)
	}

	if err := os.Rename(tmpPath, s.filePath); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	success = true
	return nil
}

// Ping reports whether the backing file location is usable.
func (s *Storage) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := os.Stat(filepath.Dir(s.filePath)); err != nil {
		return fmt.Errorf("store dir unavailable: %w", err)
	}
	return nil
}

// User operations

func (s *Storage) CreateUser(ctx context.Context, params CreateUserParams) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}
	if params.Email == "" {
		return models.User{}, errors.New("email is required")
	}
	if params.PasswordHash == "" {
		return models.User{}, errors.New("password hash is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Emails are compared exactly: the address is the token subject and must
	// round-trip byte-for-byte.
	for _, user := range s.data.Users {
		if user.Email == params.Email {
			return models.User{}, ErrEmailTaken
		}
	}

	user := models.User{
		ID:           uuid.NewString(),
		Email:        params.Email,
		Phone:        params.Phone,
		PasswordHash: params.PasswordHash,
		CreatedAt:    time.Now().UTC(),
	}

	s.data.Users[user.ID] = user
	if err := s.persist(); err != nil {
		delete(s.data.Users, user.ID)
		return models.User{}, err
	}
	return user, nil
}

func (s *Storage) FindUserByEmail(ctx context.Context, email string) (models.User, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.data.Users {
		if user.Email == email {
			return user, true, nil
		}
	}
	return models.User{}, false, nil
}

// AuthenticateUser verifies credentials and returns the matching user. Unknown
// emails and wrong passwords both report ErrInvalidCredentials.
func (s *Storage) AuthenticateUser(ctx context.Context, email, password string) (models.User, error) {
	user, ok, err := s.FindUserByEmail(ctx, email)
	if err != nil {
		return models.User{}, err
	}
	if !ok {
		return models.User{}, ErrInvalidCredentials
	}
	if err := auth.VerifyPassword(user.PasswordHash, password); err != nil {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Video operations

func (s *Storage) CreateVideo(ctx context.Context, params CreateVideoParams) (models.VideoRecord, error) {
	if err := ctx.Err(); err != nil {
		return models.VideoRecord{}, err
	}
	if params.UserID == "" {
		return models.VideoRecord{}, errors.New("user id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record := models.VideoRecord{
		ID:          uuid.NewString(),
		UserID:      params.UserID,
		VideoData:   params.VideoData,
		LocationLat: params.LocationLat,
		LocationLng: params.LocationLng,
		PhoneNumber: params.PhoneNumber,
		Timestamp:   time.Now().UTC(),
	}

	s.data.Videos[record.ID] = record
	if err := s.persist(); err != nil {
		delete(s.data.Videos, record.ID)
		return models.VideoRecord{}, err
	}
	return record, nil
}

func (s *Storage) ListVideos(ctx context.Context, userID string) ([]models.VideoSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]models.VideoSummary, 0)
	for _, record := range s.data.Videos {
		if record.UserID == userID {
			summaries = append(summaries, record.Summary())
		}
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Timestamp.Equal(summaries[j].Timestamp) {
			return summaries[i].ID < summaries[j].ID
		}
		return summaries[i].Timestamp.Before(summaries[j].Timestamp)
	})
	return summaries, nil
}

func (s *Storage) GetVideo(ctx context.Context, id, userID string) (models.VideoRecord, error) {
	if err := ctx.Err(); err != nil {
		return models.VideoRecord{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.data.Videos[id]
	if !ok || record.UserID != userID {
		return models.VideoRecord{}, ErrVideoNotFound
	}
	return record, nil
}

func (s *Storage) DeleteVideo(ctx context.Context, id, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.data.Videos[id]
	if !ok || record.UserID != userID {
		return ErrVideoNotFound
	}

	delete(s.data.Videos, id)
	if err := s.persist(); err != nil {
		s.data.Videos[id] = record
		return err
	}
	return nil
}
