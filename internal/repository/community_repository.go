package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"beyond-pages/internal/domain"
	"beyond-pages/pkg/database"
)

// communityRepository handles community posts and replies with PostgreSQL
type communityRepository struct {
	db *database.PostgresDB
}

// NewCommunityRepository creates a new community repository
func NewCommunityRepository(db *database.PostgresDB) CommunityRepository {
	return &communityRepository{db: db}
}

// Posts are listed with their author profile, book title and reply count.
const postSelect = `
	SELECT p.id, p.user_id, p.book_id, p.content, p.created_at,
	       pr.username, pr.display_name, pr.avatar_url,
	       b.title,
	       (SELECT COUNT(*) FROM post_replies r WHERE r.post_id = p.id)
	FROM community_posts p
	LEFT JOIN profiles pr ON pr.id = p.user_id
	LEFT JOIN books b ON b.id = p.book_id
`

func scanPost(row pgx.Row) (*domain.CommunityPost, error) {
	post := &domain.CommunityPost{}
	var (
		username    *string
		displayName *string
		avatarURL   *string
	)
	err := row.Scan(
		&post.ID,
		&post.UserID,
		&post.BookID,
		&post.Content,
		&post.CreatedAt,
		&username,
		&displayName,
		&avatarURL,
		&post.BookTitle,
		&post.ReplyCount,
	)
	if err != nil {
		return nil, err
	}
	if username != nil {
		post.Author = &domain.Author{Username: *username, DisplayName: displayName, AvatarURL: avatarURL}
	}
	return post, nil
}

func collectPosts(rows pgx.Rows) ([]*domain.CommunityPost, error) {
	defer rows.Close()

	posts := []*domain.CommunityPost{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}
	return posts, nil
}

func (r *communityRepository) CreatePost(ctx context.Context, post *domain.CommunityPost) error {
	query := `
		INSERT INTO community_posts (user_id, book_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.db.Pool.QueryRow(ctx, query, post.UserID, post.BookID, post.Content).Scan(&post.ID, &post.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	return nil
}

func (r *communityRepository) GetPost(ctx context.Context, id string) (*domain.CommunityPost, error) {
	post, err := scanPost(r.db.GetReadPool().QueryRow(ctx, postSelect+` WHERE p.id = $1`, id))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return post, nil
}

func (r *communityRepository) ListPosts(ctx context.Context, page domain.PostPage) ([]*domain.CommunityPost, error) {
	query := postSelect + `
		WHERE ($1::timestamptz IS NULL OR p.created_at < $1)
		ORDER BY p.created_at DESC
		LIMIT $2`

	rows, err := r.db.GetReadPool().Query(ctx, query, page.Before, clampLimit(page.Limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return collectPosts(rows)
}

func (r *communityRepository) ListPostsByAuthors(ctx context.Context, authorIDs []string, page domain.PostPage) ([]*domain.CommunityPost, error) {
	if len(authorIDs) == 0 {
		return []*domain.CommunityPost{}, nil
	}

	query := postSelect + `
		WHERE p.user_id::text = ANY($1)
		  AND ($2::timestamptz IS NULL OR p.created_at < $2)
		ORDER BY p.created_at DESC
		LIMIT $3`

	rows, err := r.db.GetReadPool().Query(ctx, query, authorIDs, page.Before, clampLimit(page.Limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list feed: %w", err)
	}
	return collectPosts(rows)
}

func (r *communityRepository) DeletePost(ctx context.Context, userID, id string) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM community_posts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete post: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *communityRepository) CreateReply(ctx context.Context, reply *domain.PostReply) error {
	query := `
		INSERT INTO post_replies (post_id, user_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.db.Pool.QueryRow(ctx, query, reply.PostID, reply.UserID, reply.Content).Scan(&reply.ID, &reply.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create reply: %w", err)
	}
	return nil
}

// ListReplies returns a post's replies oldest first, in reading order
func (r *communityRepository) ListReplies(ctx context.Context, postID string) ([]*domain.PostReply, error) {
	query := `
		SELECT r.id, r.post_id, r.user_id, r.content, r.created_at,
		       pr.username, pr.display_name, pr.avatar_url
		FROM post_replies r
		LEFT JOIN profiles pr ON pr.id = r.user_id
		WHERE r.post_id = $1
		ORDER BY r.created_at ASC
	`

	rows, err := r.db.GetReadPool().Query(ctx, query, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to list replies: %w", err)
	}
	defer rows.Close()

	replies := []*domain.PostReply{}
	for rows.Next() {
		reply := &domain.PostReply{}
		var username, displayName, avatarURL *string
		if err := rows.Scan(&reply.ID, &reply.PostID, &reply.UserID, &reply.Content, &reply.CreatedAt,
			&username, &displayName, &avatarURL); err != nil {
			return nil, fmt.Errorf("failed to scan reply: %w", err)
		}
		if username != nil {
			reply.Author = &domain.Author{Username: *username, DisplayName: displayName, AvatarURL: avatarURL}
		}
		replies = append(replies, reply)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate replies: %w", err)
	}
	return replies, nil
}
