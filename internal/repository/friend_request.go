package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"linkup-backend/internal/apperr"
	"linkup-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const requestColumns = `id, sender_id, recipient_id, status, created_at, updated_at`

// FriendRequestRepository handles database operations for friend requests
type FriendRequestRepository struct {
	db *pgxpool.Pool
}

// NewFriendRequestRepository creates a new friend request repository
func NewFriendRequestRepository(db *pgxpool.Pool) *FriendRequestRepository {
	return &FriendRequestRepository{db: db}
}

func scanRequest(row pgx.Row) (*models.FriendRequest, error) {
	var req models.FriendRequest
	err := row.Scan(&req.ID, &req.SenderID, &req.RecipientID, &req.Status, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// Create creates a new friend request.
// The pair index on (LEAST, GREATEST) rejects a second request for the same unordered pair.
func (r *FriendRequestRepository) Create(ctx context.Context, req *models.FriendRequest) error {
	query := `
		INSERT INTO friend_requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		req.ID, req.SenderID, req.RecipientID, req.Status, req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		return storeError("create friend request", err)
	}
	return nil
}

// GetByID retrieves a friend request by ID
func (r *FriendRequestRepository) GetByID(ctx context.Context, id string) (*models.FriendRequest, error) {
	return getRequest(ctx, r.db, id)
}

func getRequest(ctx context.Context, q querier, id string) (*models.FriendRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM friend_requests WHERE id = $1`
	req, err := scanRequest(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Wrap(apperr.KindNotFound, err, "friend request not found")
		}
		return nil, storeError("get friend request", err)
	}
	return req, nil
}

// Find retrieves friend requests matching the filter, newest first
func (r *FriendRequestRepository) Find(ctx context.Context, filter RequestFilter) ([]*models.FriendRequest, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Participant != "" {
		args = append(args, filter.Participant)
		conds = append(conds, fmt.Sprintf("(sender_id = $%d OR recipient_id = $%d)", len(args), len(args)))
	}
	if filter.SenderID != "" {
		args = append(args, filter.SenderID)
		conds = append(conds, fmt.Sprintf("sender_id = $%d", len(args)))
	}
	if filter.RecipientID != "" {
		args = append(args, filter.RecipientID)
		conds = append(conds, fmt.Sprintf("recipient_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + requestColumns + ` FROM friend_requests`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, storeError("query friend requests", err)
	}
	defer rows.Close()

	requests := []*models.FriendRequest{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, storeError("scan friend request", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate friend requests", err)
	}
	return requests, nil
}

// ExistsBetween checks if any request exists between two users in either direction
func (r *FriendRequestRepository) ExistsBetween(ctx context.Context, userA, userB string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM friend_requests
			WHERE (sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1)
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, userA, userB).Scan(&exists); err != nil {
		return false, storeError("check friend request existence", err)
	}
	return exists, nil
}

// UpdateStatus moves a request from one status to another
func (r *FriendRequestRepository) UpdateStatus(ctx context.Context, id string, from, to models.RequestStatus) (*models.FriendRequest, error) {
	return transition(ctx, r.db, id, from, to)
}

func transition(ctx context.Context, q querier, id string, from, to models.RequestStatus) (*models.FriendRequest, error) {
	query := `
		UPDATE friend_requests SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
		RETURNING ` + requestColumns
	req, err := scanRequest(q.QueryRow(ctx, query, id, from, to, time.Now()))
	if err == nil {
		return req, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, storeError("update friend request status", err)
	}

	current, err := getRequest(ctx, q, id)
	if err != nil {
		return nil, err
	}
	return nil, apperr.Newf(apperr.KindConflict, "friend request is already %s", current.Status)
}

// Accept marks a pending request accepted and adds both users to each other's friends
// in a single transaction.
func (r *FriendRequestRepository) Accept(ctx context.Context, id string) (*models.FriendRequest, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, storeError("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	req, err := transition(ctx, tx, id, models.StatusPending, models.StatusAccepted)
	if err != nil {
		return nil, err
	}
	if err := addFriend(ctx, tx, req.SenderID, req.RecipientID); err != nil {
		return nil, err
	}
	if err := addFriend(ctx, tx, req.RecipientID, req.SenderID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storeError("commit accept", err)
	}
	return req, nil
}
