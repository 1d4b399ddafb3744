package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"linkup-backend/internal/apperr"
	"linkup-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, full_name, bio, native_language, learning_language, location,
	profile_pic, is_onboarded, friends, push_token, created_at, updated_at`

// querier is satisfied by both *pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserRepository handles database operations for users
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.FullName, &user.Bio, &user.NativeLanguage, &user.LearningLanguage,
		&user.Location, &user.ProfilePic, &user.IsOnboarded, &user.Friends, &user.PushToken,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if user.Friends == nil {
		user.Friends = []string{}
	}
	return &user, nil
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.Friends == nil {
		user.Friends = []string{}
	}
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.Exec(ctx, query,
		user.ID, user.FullName, user.Bio, user.NativeLanguage, user.LearningLanguage,
		user.Location, user.ProfilePic, user.IsOnboarded, user.Friends, user.PushToken,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return storeError("create user", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, storeError("get user", err)
	}
	return user, nil
}

// GetByIDs retrieves users by ID, preserving the order of ids
func (r *UserRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	if len(ids) == 0 {
		return []*models.User{}, nil
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1)`
	found, err := r.queryUsers(ctx, query, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*models.User, len(found))
	for _, u := range found {
		byID[u.ID] = u
	}
	users := make([]*models.User, 0, len(found))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			users = append(users, u)
			delete(byID, id)
		}
	}
	return users, nil
}

// Find retrieves users matching the filter ordered by creation time
func (r *UserRepository) Find(ctx context.Context, filter UserFilter) ([]*models.User, error) {
	var (
		conds []string
		args  []any
	)
	if filter.OnboardedOnly {
		conds = append(conds, "is_onboarded = TRUE")
	}
	if len(filter.ExcludeIDs) > 0 {
		args = append(args, filter.ExcludeIDs)
		conds = append(conds, fmt.Sprintf("NOT (id = ANY($%d))", len(args)))
	}
	if filter.NameContains != "" {
		args = append(args, "%"+escapeLike(filter.NameContains)+"%")
		conds = append(conds, fmt.Sprintf("full_name ILIKE $%d", len(args)))
	}

	query := `SELECT ` + userColumns + ` FROM users`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at, id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	return r.queryUsers(ctx, query, args...)
}

func (r *UserRepository) queryUsers(ctx context.Context, query string, args ...any) ([]*models.User, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, storeError("query users", err)
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, storeError("scan user", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate users", err)
	}
	return users, nil
}

// UpdateProfile stores the onboarding profile and marks the user onboarded
func (r *UserRepository) UpdateProfile(ctx context.Context, id string, profile models.Profile) (*models.User, error) {
	query := `
		UPDATE users
		SET full_name = $2, bio = $3, native_language = $4, learning_language = $5,
			location = $6, profile_pic = $7, is_onboarded = TRUE, updated_at = $8
		WHERE id = $1
		RETURNING ` + userColumns
	user, err := scanUser(r.db.QueryRow(ctx, query, id,
		profile.FullName, profile.Bio, profile.NativeLanguage, profile.LearningLanguage,
		profile.Location, profile.ProfilePic, time.Now(),
	))
	if err != nil {
		return nil, storeError("update profile", err)
	}
	return user, nil
}

// UpdateAvatar updates the avatar URL for a user
func (r *UserRepository) UpdateAvatar(ctx context.Context, id, avatarURL string) error {
	query := `UPDATE users SET profile_pic = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.Exec(ctx, query, avatarURL, time.Now(), id)
	if err != nil {
		return storeError("update avatar", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "user not found")
	}
	return nil
}

// UpdatePushToken updates the push token for a user
func (r *UserRepository) UpdatePushToken(ctx context.Context, id string, pushToken *string) error {
	query := `UPDATE users SET push_token = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.Exec(ctx, query, pushToken, time.Now(), id)
	if err != nil {
		return storeError("update push token", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "user not found")
	}
	return nil
}

// AddFriend adds friendID to the user's friends set
func (r *UserRepository) AddFriend(ctx context.Context, userID, friendID string) error {
	return addFriend(ctx, r.db, userID, friendID)
}

func addFriend(ctx context.Context, q querier, userID, friendID string) error {
	query := `
		UPDATE users SET friends = array_append(friends, $2), updated_at = $3
		WHERE id = $1 AND NOT ($2 = ANY(friends))
	`
	result, err := q.Exec(ctx, query, userID, friendID, time.Now())
	if err != nil {
		return storeError("add friend", err)
	}
	if result.RowsAffected() > 0 {
		return nil
	}

	// Nothing updated: either already friends or the user does not exist
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return storeError("check user existence", err)
	}
	if !exists {
		return apperr.New(apperr.KindNotFound, "user not found")
	}
	return nil
}

// escapeLike escapes LIKE wildcards so s matches literally
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
