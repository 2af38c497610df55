package storage

import (
	"context"
	"errors"

	"camvault/internal/models"
)

var (
	// ErrEmailTaken is returned when registration collides with an existing
	// account email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned for both unknown emails and wrong
	// passwords so login failures cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrVideoNotFound is returned when a video does not exist or belongs to
	// another user. The two cases are deliberately indistinguishable.
	ErrVideoNotFound = errors.New("video not found")
)

// CreateUserParams captures the attributes set when registering an account.
// Password arrives pre-hashed; the store never sees plaintext on create.
type CreateUserParams struct {
	Email        string
	Phone        *string
	PasswordHash string
}

// CreateVideoParams captures an upload. VideoData is the base64 payload as
// received on the wire.
type CreateVideoParams struct {
	UserID      string
	VideoData   string
	LocationLat *float64
	LocationLng *float64
	PhoneNumber *string
}

// Repository exposes the datastore operations required by the API handlers.
// Every video lookup and delete is owner-scoped: acting on another user's
// record id yields the same ErrVideoNotFound as a nonexistent id.
type Repository interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, params CreateUserParams) (models.User, error)
	FindUserByEmail(ctx context.Context, email string) (models.User, bool, error)
	AuthenticateUser(ctx context.Context, email, password string) (models.User, error)

	CreateVideo(ctx context.Context, params CreateVideoParams) (models.VideoRecord, error)
	ListVideos(ctx context.Context, userID string) ([]models.VideoSummary, error)
	GetVideo(ctx context.Context, id, userID string) (models.VideoRecord, error)
	DeleteVideo(ctx context.Context, id, userID string) error
}

var (
	_ Repository = (*Storage)(nil)
	_ Repository = (*postgresRepository)(nil)
)
