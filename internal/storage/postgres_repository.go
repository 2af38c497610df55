package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"camvault/internal/auth"
	"camvault/internal/models"
)

const pgUniqueViolation = "23505"

type postgresRepository struct {
	pool *pgxpool.Pool
	cfg  PostgresConfig
}

// NewPostgresRepository opens a Postgres-backed repository and ensures the
// schema exists. The unique index on users.email makes concurrent
// registrations of the same address collide at insert time.
func NewPostgresRepository(ctx context.Context, dsn string, opts ...PostgresOption) (Repository, error) {
	cfg := newPostgresConfig(dsn, opts...)
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = cfg.MaxConnections
	}
	if cfg.MinConnections >= 0 {
		poolCfg.MinConns = cfg.MinConnections
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.HealthCheckInterval > 0 {
		poolCfg.HealthCheckPeriod = cfg.HealthCheckInterval
	}
	if cfg.AcquireTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.AcquireTimeout
	}
	if cfg.ApplicationName != "" {
		if poolCfg.ConnConfig.RuntimeParams == nil {
			poolCfg.ConnConfig.RuntimeParams = make(map[string]string)
		}
		poolCfg.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	repo := &postgresRepository{pool: pool, cfg: cfg}
	if err := repo.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return repo, nil
}

func (r *postgresRepository) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL,
			phone TEXT,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (email)`,
		`CREATE TABLE IF NOT EXISTS videos (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			video_data TEXT NOT NULL,
			location_lat DOUBLE PRECISION,
			location_lng DOUBLE PRECISION,
			phone_number TEXT,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS videos_user_id_idx ON videos (user_id, created_at)`,
	}
	for _, stmt := range statements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Close releases the connection pool, honouring the context deadline.
func (r *postgresRepository) Close(ctx context.Context) error {
	if r == nil || r.pool == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		r.pool.Close()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (r *postgresRepository) Ping(ctx context.Context) error {
	if r.cfg.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.AcquireTimeout)
		defer cancel()
	}
	return r.pool.Ping(ctx)
}

func (r *postgresRepository) CreateUser(ctx context.Context, params CreateUserParams) (models.User, error) {
	if params.Email == "" {
		return models.User{}, errors.New("email is required")
	}
	if params.PasswordHash == "" {
		return models.User{}, errors.New("password hash is required")
	}

	user := models.User{
		ID:           uuid.NewString(),
		Email:        params.Email,
		Phone:        params.Phone,
		PasswordHash: params.PasswordHash,
		CreatedAt:    time.Now().UTC(),
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, email, phone, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Email, user.Phone, user.PasswordHash, user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (r *postgresRepository) FindUserByEmail(ctx context.Context, email string) (models.User, bool, error) {
	var user models.User
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, phone, password_hash, created_at FROM users WHERE email = $1`,
		email).Scan(&user.ID, &user.Email, &user.Phone, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, false, nil
	}
	if err != nil {
		return models.User{}, false, fmt.Errorf("query user: %w", err)
	}
	return user, true, nil
}

func (r *postgresRepository) AuthenticateUser(ctx context.Context, email, password string) (models.User, error) {
	user, ok, err := r.FindUserByEmail(ctx, email)
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

func (r *postgresRepository) CreateVideo(ctx context.Context, params CreateVideoParams) (models.VideoRecord, error) {
	if params.UserID == "" {
		return models.VideoRecord{}, errors.New("user id is required")
	}

	record := models.VideoRecord{
		ID:          uuid.NewString(),
		UserID:      params.UserID,
		VideoData:   params.VideoData,
		LocationLat: params.LocationLat,
		LocationLng: params.LocationLng,
		PhoneNumber: params.PhoneNumber,
		Timestamp:   time.Now().UTC(),
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO videos (id, user_id, video_data, location_lat, location_lng, phone_number, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		record.ID, record.UserID, record.VideoData, record.LocationLat,
		record.LocationLng, record.PhoneNumber, record.Timestamp)
	if err != nil {
		return models.VideoRecord{}, fmt.Errorf("insert video: %w", err)
	}
	return record, nil
}

func (r *postgresRepository) ListVideos(ctx context.Context, userID string) ([]models.VideoSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, location_lat, location_lng, phone_number, created_at
		 FROM videos WHERE user_id = $1
		 ORDER BY created_at, id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	summaries := make([]models.VideoSummary, 0)
	for rows.Next() {
		var summary models.VideoSummary
		if err := rows.Scan(&summary.ID, &summary.LocationLat, &summary.LocationLng,
			&summary.PhoneNumber, &summary.Timestamp); err != nil {
			return nil, fmt.Errorf("scan video summary: %w", err)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}
	return summaries, nil
}

func (r *postgresRepository) GetVideo(ctx context.Context, id, userID string) (models.VideoRecord, error) {
	var record models.VideoRecord
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, video_data, location_lat, location_lng, phone_number, created_at
		 FROM videos WHERE id = $1 AND user_id = $2`,
		id, userID).Scan(&record.ID, &record.UserID, &record.VideoData,
		&record.LocationLat, &record.LocationLng, &record.PhoneNumber, &record.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.VideoRecord{}, ErrVideoNotFound
	}
	if err != nil {
		return models.VideoRecord{}, fmt.Errorf("query video: %w", err)
	}
	return record, nil
}

func (r *postgresRepository) DeleteVideo(ctx context.Context, id, userID string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM videos WHERE id = $1 AND user_id = $2`,
		id, userID)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVideoNotFound
	}
	return nil
}
