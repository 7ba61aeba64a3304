package domain

import "time"

// CommunityPost is a public post on the community feed
type CommunityPost struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	BookID     *string   `json:"book_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	Author     *Author   `json:"author,omitempty"`
	BookTitle  *string   `json:"book_title,omitempty"`
	ReplyCount int       `json:"reply_count"`
}

// Author is the profile summary attached to posts and replies
type Author struct {
	Username    string  `json:"username"`
	DisplayName *string `json:"display_name"`
	AvatarURL   *string `json:"avatar_url"`
}

// PostReply is a reply to a community post
type PostReply struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Author    *Author   `json:"author,omitempty"`
}

type CreatePostRequest struct {
	Content string  `json:"content"`
	BookID  *string `json:"book_id"`
}

type CreateReplyRequest struct {
	Content string `json:"content"`
}

// PostPage is a page of the feed. Before is a created_at cursor.
type PostPage struct {
	Limit  int
	Before *time.Time
}
