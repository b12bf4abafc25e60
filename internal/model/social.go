package model

import "time"

type Friend struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

type FriendRequest struct {
	ID           string    `json:"id"`
	FromUserID   string    `json:"fromUserId"`
	FromUsername string    `json:"fromUsername"`
	CreatedAt    time.Time `json:"createdAt"`
}

// FeedItemKind can be one of:
//   - workout
//   - photo
type FeedItemKind string

const (
	FeedItemKindWorkout FeedItemKind = "workout"
	FeedItemKindPhoto   FeedItemKind = "photo"
)

type FeedItem struct {
	ID           string       `json:"id"`
	Kind         FeedItemKind `json:"kind"`
	UserID       string       `json:"userId"`
	Username     string       `json:"username"`
	Title        string       `json:"title"`
	ImageURL     string       `json:"imageUrl,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	Likes        int          `json:"likes"`
	CommentCount int          `json:"commentCount"`
}
