package guest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"beyond-pages/pkg/errors"
	"beyond-pages/pkg/redis"
	"beyond-pages/pkg/sanitize"
)

// MaxPosts is how many drafted posts a guest keeps; older ones fall off.
const MaxPosts = 50

// Post is a community post written in guest mode. It stays in the guest's
// key space and disappears with the session.
type Post struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	BookTitle *string   `json:"bookTitle,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	Replies   []Reply   `json:"replies"`
}

type Reply struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListPosts returns the guest's posts, newest first
func (s *Service) ListPosts(ctx context.Context, guestID string) ([]Post, error) {
	_, ok, err := s.Validate(ctx, guestID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.NewSessionExpiredError("Guest session is not active")
	}
	return s.loadPosts(ctx, guestID)
}

// CreatePost sanitizes content, counts a post action and stores the post.
// The decision is returned even when the limit denies the post.
func (s *Service) CreatePost(ctx context.Context, guestID, content string, bookTitle *string) (*Post, Decision, error) {
	session, ok, err := s.Validate(ctx, guestID)
	if err != nil {
		return nil, Decision{}, err
	}
	if !ok {
		return nil, Decision{Limit: s.config.PostLimit}, errors.NewSessionExpiredError("Guest session is not active")
	}

	clean, err := sanitize.Apply(sanitize.PostContent, content)
	if err != nil {
		return nil, Decision{}, err
	}
	title, err := sanitize.Optional(sanitize.Title, bookTitle)
	if err != nil {
		return nil, Decision{}, err
	}

	decision, err := s.consume(ctx, guestID, ActionPost, s.config.PostLimit)
	if err != nil {
		return nil, Decision{}, err
	}
	if !decision.Allowed {
		return nil, decision, errors.NewRateLimitError("Guest post limit reached, sign in to keep posting")
	}

	posts, err := s.loadPosts(ctx, guestID)
	if err != nil {
		return nil, decision, err
	}

	post := Post{
		ID:        uuid.NewString(),
		Content:   clean,
		BookTitle: title,
		CreatedAt: s.now(),
		Replies:   []Reply{},
	}
	posts = append([]Post{post}, posts...)
	if len(posts) > MaxPosts {
		posts = posts[:MaxPosts]
	}

	if err := s.savePosts(ctx, session, posts); err != nil {
		return nil, decision, err
	}
	return &post, decision, nil
}

// CreateReply adds a reply to one of the guest's posts
func (s *Service) CreateReply(ctx context.Context, guestID, postID, content string) (*Reply, Decision, error) {
	session, ok, err := s.Validate(ctx, guestID)
	if err != nil {
		return nil, Decision{}, err
	}
	if !ok {
		return nil, Decision{Limit: s.config.ReplyLimit}, errors.NewSessionExpiredError("Guest session is not active")
	}

	clean, err := sanitize.Apply(sanitize.Reply, content)
	if err != nil {
		return nil, Decision{}, err
	}

	posts, err := s.loadPosts(ctx, guestID)
	if err != nil {
		return nil, Decision{}, err
	}
	idx := -1
	for i := range posts {
		if posts[i].ID == postID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, Decision{}, errors.NewNotFoundError("Post not found")
	}

	decision, err := s.consume(ctx, guestID, ActionReply, s.config.ReplyLimit)
	if err != nil {
		return nil, Decision{}, err
	}
	if !decision.Allowed {
		return nil, decision, errors.NewRateLimitError("Guest reply limit reached, sign in to keep replying")
	}

	reply := Reply{
		ID:        uuid.NewString(),
		Content:   clean,
		CreatedAt: s.now(),
	}
	posts[idx].Replies = append(posts[idx].Replies, reply)

	if err := s.savePosts(ctx, session, posts); err != nil {
		return nil, decision, err
	}
	return &reply, decision, nil
}

func (s *Service) loadPosts(ctx context.Context, guestID string) ([]Post, error) {
	raw, found, err := s.store.Get(ctx, redis.GuestPostsKey(guestID))
	if err != nil {
		return nil, errors.NewBackendError("Failed to load guest posts", err)
	}
	if !found {
		return []Post{}, nil
	}

	var posts []Post
	if err := json.Unmarshal([]byte(raw), &posts); err != nil {
		s.logger.WithField("guest_id", guestID).Warn("Discarding unreadable guest posts")
		return []Post{}, nil
	}
	return posts, nil
}

// savePosts keeps the posts no longer than the session itself
func (s *Service) savePosts(ctx context.Context, session *Session, posts []Post) error {
	raw, err := json.Marshal(posts)
	if err != nil {
		return errors.NewInternalError("Failed to encode guest posts", err)
	}
	ttl := session.ExpiresAt(s.config.SessionTTL).Sub(s.now())
	if ttl < time.Second {
		ttl = time.Second
	}
	if err := s.store.Set(ctx, redis.GuestPostsKey(session.GuestID), string(raw), ttl); err != nil {
		return errors.NewBackendError("Failed to save guest posts", err)
	}
	return nil
}
