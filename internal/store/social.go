package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/2beens/liftsync/internal/model"
	"github.com/2beens/liftsync/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// GetFriendsFeed returns the latest workouts and public photos of the user's
// friends, newest first. Private profiles contribute no workouts.
func (r *Repo) GetFriendsFeed(ctx context.Context, userID string) (_ []model.FeedItem, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.social.feed")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`
			SELECT id, kind, user_id, username, title, image_url, created_at, likes, comment_count
			FROM (
			    SELECT
			        'workout-' || w.id::text AS id,
			        'workout' AS kind,
			        w.user_id AS user_id,
			        COALESCE(p.username, '') AS username,
			        w.name AS title,
			        '' AS image_url,
			        w.created_at AS created_at,
			        0 AS likes,
			        0 AS comment_count
			    FROM workout w
			    JOIN friendship f ON f.friend_id = w.user_id
			    LEFT JOIN profile p ON p.user_id = w.user_id
			    WHERE f.user_id = $1 AND NOT COALESCE(p.private, false)
			    UNION ALL
			    SELECT
			        'photo-' || ph.id::text,
			        'photo',
			        ph.user_id,
			        COALESCE(p.username, ''),
			        COALESCE(ph.caption, ''),
			        ph.image_url,
			        ph.created_at,
			        ph.likes,
			        jsonb_array_length(ph.comments)
			    FROM progress_photo ph
			    JOIN friendship f ON f.friend_id = ph.user_id
			    LEFT JOIN profile p ON p.user_id = ph.user_id
			    WHERE f.user_id = $1 AND ph.public
			) feed
			ORDER BY created_at DESC
			LIMIT $2
		`,
		userID, feedLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("feed [query]: %w", err)
	}
	defer rows.Close()

	var items []model.FeedItem
	for rows.Next() {
		var item model.FeedItem
		if err := rows.Scan(
			&item.ID,
			&item.Kind,
			&item.UserID,
			&item.Username,
			&item.Title,
			&item.ImageURL,
			&item.CreatedAt,
			&item.Likes,
			&item.CommentCount,
		); err != nil {
			return nil, fmt.Errorf("feed [rows scan]: %w", err)
		}
		item.CreatedAt = item.CreatedAt.UTC()
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("feed [rows error]: %w", err)
	}

	span.SetAttributes(attribute.Int("feed.items", len(items)))
	return items, nil
}

func (r *Repo) listFriends(ctx context.Context, userID string) ([]model.Friend, error) {
	rows, err := r.db.Query(
		ctx,
		`
			SELECT f.friend_id, COALESCE(p.username, ''), COALESCE(p.profile_picture, '')
			FROM friendship f
			LEFT JOIN profile p ON p.user_id = f.friend_id
			WHERE f.user_id = $1
			ORDER BY f.created_at
		`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("friends [query]: %w", err)
	}
	defer rows.Close()

	var friends []model.Friend
	for rows.Next() {
		var friend model.Friend
		if err := rows.Scan(&friend.UserID, &friend.Username, &friend.AvatarURL); err != nil {
			return nil, fmt.Errorf("friends [rows scan]: %w", err)
		}
		friends = append(friends, friend)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("friends [rows error]: %w", err)
	}
	return friends, nil
}

func (r *Repo) listFriendRequests(ctx context.Context, userID string) ([]model.FriendRequest, error) {
	rows, err := r.db.Query(
		ctx,
		`
			SELECT fr.id, fr.from_user_id, COALESCE(p.username, ''), fr.created_at
			FROM friend_request fr
			LEFT JOIN profile p ON p.user_id = fr.from_user_id
			WHERE fr.to_user_id = $1
			ORDER BY fr.created_at
		`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("friend requests [query]: %w", err)
	}
	defer rows.Close()

	var requests []model.FriendRequest
	for rows.Next() {
		var (
			request model.FriendRequest
			id      int64
		)
		if err := rows.Scan(&id, &request.FromUserID, &request.FromUsername, &request.CreatedAt); err != nil {
			return nil, fmt.Errorf("friend requests [rows scan]: %w", err)
		}
		request.ID = strconv.FormatInt(id, 10)
		request.CreatedAt = request.CreatedAt.UTC()
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("friend requests [rows error]: %w", err)
	}
	return requests, nil
}

// AddFriendship links both users to each other.
func (r *Repo) AddFriendship(ctx context.Context, userID, friendID string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.social.add_friendship")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	_, err = r.db.Exec(
		ctx,
		`
			INSERT INTO friendship (user_id, friend_id)
			VALUES ($1, $2), ($2, $1)
			ON CONFLICT DO NOTHING
		`,
		userID, friendID,
	)
	if err != nil {
		return fmt.Errorf("add friendship: %w", err)
	}
	return nil
}
