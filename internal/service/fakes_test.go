package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"beyond-pages/internal/domain"
	"beyond-pages/internal/repository"
	"beyond-pages/pkg/storage"
)

var errDown = errors.New("database is down")

// memBooks is an in-memory BookRepository
type memBooks struct {
	mu    sync.Mutex
	seq   int
	books map[string]*domain.Book
	err   error
}

func newMemBooks() *memBooks {
	return &memBooks{books: map[string]*domain.Book{}}
}

func (m *memBooks) Create(ctx context.Context, book *domain.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.seq++
	book.ID = fmt.Sprintf("book-%d", m.seq)
	book.CreatedAt = time.Now()
	clone := *book
	m.books[book.ID] = &clone
	return nil
}

func (m *memBooks) Get(ctx context.Context, userID, id string) (*domain.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	book, ok := m.books[id]
	if !ok || book.UserID != userID {
		return nil, nil
	}
	clone := *book
	return &clone, nil
}

func (m *memBooks) ListByUser(ctx context.Context, userID string, filter domain.BookFilter) ([]*domain.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Book{}
	for _, b := range m.books {
		if b.UserID == userID && (filter.Status == "" || b.Status == filter.Status) {
			clone := *b
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memBooks) Update(ctx context.Context, book *domain.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	clone := *book
	m.books[book.ID] = &clone
	return nil
}

func (m *memBooks) Delete(ctx context.Context, userID, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	book, ok := m.books[id]
	if !ok || book.UserID != userID {
		return false, nil
	}
	delete(m.books, id)
	return true, nil
}

func (m *memBooks) UpdateProgress(ctx context.Context, book *domain.Book) error {
	return m.Update(ctx, book)
}

func (m *memBooks) SetCover(ctx context.Context, userID, id, coverURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if book, ok := m.books[id]; ok && book.UserID == userID {
		book.CoverURL = &coverURL
	}
	return nil
}

func (m *memBooks) Search(ctx context.Context, userID, query string, limit int) ([]*domain.Book, error) {
	all, _ := m.ListByUser(ctx, userID, domain.BookFilter{})
	out := []*domain.Book{}
	for _, b := range all {
		if strings.Contains(strings.ToLower(b.Title), strings.ToLower(query)) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memBooks) Scan(ctx context.Context, afterID string, limit int) ([]*domain.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Book{}
	for _, b := range m.books {
		if b.ID > afterID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// memHighlights is an in-memory HighlightRepository
type memHighlights struct {
	mu         sync.Mutex
	highlights []*domain.Highlight
}

func (m *memHighlights) Create(ctx context.Context, h *domain.Highlight) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h.ID = fmt.Sprintf("hl-%d", len(m.highlights)+1)
	m.highlights = append(m.highlights, h)
	return nil
}

func (m *memHighlights) ListByBook(ctx context.Context, userID, bookID string) ([]*domain.Highlight, error) {
	out := []*domain.Highlight{}
	for _, h := range m.highlights {
		if h.UserID == userID && h.BookID == bookID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *memHighlights) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Highlight, error) {
	out := []*domain.Highlight{}
	for _, h := range m.highlights {
		if h.UserID == userID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *memHighlights) Delete(ctx context.Context, userID, id string) (bool, error) {
	for i, h := range m.highlights {
		if h.ID == id && h.UserID == userID {
			m.highlights = append(m.highlights[:i], m.highlights[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// memCommunity is an in-memory CommunityRepository
type memCommunity struct {
	mu        sync.Mutex
	posts     []*domain.CommunityPost
	replies   []*domain.PostReply
	listCalls int
}

func (m *memCommunity) CreatePost(ctx context.Context, post *domain.CommunityPost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	post.ID = fmt.Sprintf("post-%d", len(m.posts)+1)
	post.CreatedAt = time.Now()
	m.posts = append(m.posts, post)
	return nil
}

func (m *memCommunity) GetPost(ctx context.Context, id string) (*domain.CommunityPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.posts {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (m *memCommunity) ListPosts(ctx context.Context, page domain.PostPage) ([]*domain.CommunityPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	return m.filter(nil, page), nil
}

func (m *memCommunity) ListPostsByAuthors(ctx context.Context, authorIDs []string, page domain.PostPage) ([]*domain.CommunityPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter(authorIDs, page), nil
}

func (m *memCommunity) filter(authors []string, page domain.PostPage) []*domain.CommunityPost {
	out := []*domain.CommunityPost{}
	for i := len(m.posts) - 1; i >= 0; i-- {
		p := m.posts[i]
		if authors != nil && !contains(authors, p.UserID) {
			continue
		}
		if page.Before != nil && !p.CreatedAt.Before(*page.Before) {
			continue
		}
		out = append(out, p)
		if len(out) == page.Limit {
			break
		}
	}
	return out
}

func (m *memCommunity) DeletePost(ctx context.Context, userID, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.posts {
		if p.ID == id && p.UserID == userID {
			m.posts = append(m.posts[:i], m.posts[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memCommunity) CreateReply(ctx context.Context, reply *domain.PostReply) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	reply.ID = fmt.Sprintf("reply-%d", len(m.replies)+1)
	m.replies = append(m.replies, reply)
	return nil
}

func (m *memCommunity) ListReplies(ctx context.Context, postID string) ([]*domain.PostReply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.PostReply{}
	for _, r := range m.replies {
		if r.PostID == postID {
			out = append(out, r)
		}
	}
	return out, nil
}

// memFollows is an in-memory FollowRepository
type memFollows struct {
	edges map[[2]string]bool
}

func newMemFollows() *memFollows {
	return &memFollows{edges: map[[2]string]bool{}}
}

func (m *memFollows) Follow(ctx context.Context, followerID, followingID string) (bool, error) {
	key := [2]string{followerID, followingID}
	if m.edges[key] {
		return false, nil
	}
	m.edges[key] = true
	return true, nil
}

func (m *memFollows) Unfollow(ctx context.Context, followerID, followingID string) (bool, error) {
	key := [2]string{followerID, followingID}
	if !m.edges[key] {
		return false, nil
	}
	delete(m.edges, key)
	return true, nil
}

func (m *memFollows) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	return m.edges[[2]string{followerID, followingID}], nil
}

func (m *memFollows) Followers(ctx context.Context, userID string) ([]*domain.FollowUser, error) {
	out := []*domain.FollowUser{}
	for edge := range m.edges {
		if edge[1] == userID {
			out = append(out, &domain.FollowUser{ID: edge[0]})
		}
	}
	return out, nil
}

func (m *memFollows) Following(ctx context.Context, userID string) ([]*domain.FollowUser, error) {
	out := []*domain.FollowUser{}
	for edge := range m.edges {
		if edge[0] == userID {
			out = append(out, &domain.FollowUser{ID: edge[1]})
		}
	}
	return out, nil
}

func (m *memFollows) FollowingIDs(ctx context.Context, userID string) ([]string, error) {
	ids := []string{}
	for edge := range m.edges {
		if edge[0] == userID {
			ids = append(ids, edge[1])
		}
	}
	return ids, nil
}

func (m *memFollows) Counts(ctx context.Context, userID string) (*domain.FollowCounts, error) {
	counts := &domain.FollowCounts{}
	for edge := range m.edges {
		if edge[0] == userID {
			counts.Following++
		}
		if edge[1] == userID {
			counts.Followers++
		}
	}
	return counts, nil
}

// memProfiles is an in-memory ProfileRepository
type memProfiles struct {
	profiles map[string]*domain.Profile
	setErr   error
}

func newMemProfiles(profiles ...*domain.Profile) *memProfiles {
	m := &memProfiles{profiles: map[string]*domain.Profile{}}
	for _, p := range profiles {
		m.profiles[p.ID] = p
	}
	return m
}

func (m *memProfiles) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	if p, ok := m.profiles[id]; ok {
		clone := *p
		return &clone, nil
	}
	return nil, nil
}

func (m *memProfiles) GetByUsername(ctx context.Context, username string) (*domain.Profile, error) {
	for _, p := range m.profiles {
		if p.Username == username {
			clone := *p
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *memProfiles) Upsert(ctx context.Context, profile *domain.Profile) error {
	for _, p := range m.profiles {
		if p.Username == profile.Username && p.ID != profile.ID {
			return repository.ErrUsernameTaken
		}
	}
	clone := *profile
	m.profiles[profile.ID] = &clone
	return nil
}

func (m *memProfiles) SetAvatar(ctx context.Context, id, avatarURL string) error {
	if m.setErr != nil {
		return m.setErr
	}
	if p, ok := m.profiles[id]; ok {
		p.AvatarURL = &avatarURL
	}
	return nil
}

func (m *memProfiles) Stats(ctx context.Context, id string) (*domain.ProfileStats, error) {
	return &domain.ProfileStats{BooksRead: 3}, nil
}

// memBadges is an in-memory BadgeRepository
type memBadges struct {
	stats  domain.BadgeStats
	owned  map[domain.BadgeType]bool
	badges []*domain.Badge
}

func newMemBadges(stats domain.BadgeStats) *memBadges {
	return &memBadges{stats: stats, owned: map[domain.BadgeType]bool{}}
}

func (m *memBadges) List(ctx context.Context, userID string) ([]*domain.Badge, error) {
	return m.badges, nil
}

func (m *memBadges) Award(ctx context.Context, userID string, badgeType domain.BadgeType) (*domain.Badge, error) {
	if m.owned[badgeType] {
		return nil, nil
	}
	m.owned[badgeType] = true
	badge := &domain.Badge{UserID: userID, BadgeType: badgeType}
	m.badges = append(m.badges, badge)
	return badge, nil
}

func (m *memBadges) Stats(ctx context.Context, userID string) (*domain.BadgeStats, error) {
	stats := m.stats
	return &stats, nil
}

// memImages is an in-memory ImageRepository
type memImages struct {
	images []*domain.GeneratedImage
}

func (m *memImages) Create(ctx context.Context, image *domain.GeneratedImage) error {
	image.ID = fmt.Sprintf("img-%d", len(m.images)+1)
	m.images = append(m.images, image)
	return nil
}

func (m *memImages) ListByBook(ctx context.Context, userID, bookID string) ([]*domain.GeneratedImage, error) {
	out := []*domain.GeneratedImage{}
	for _, img := range m.images {
		if img.UserID == userID && img.BookID == bookID {
			out = append(out, img)
		}
	}
	return out, nil
}

// mockObjectStore is a testify mock of ObjectStore
type mockObjectStore struct {
	mock.Mock
}

func (m *mockObjectStore) Upload(ctx context.Context, key string, data []byte, contentType string) (*storage.Object, error) {
	args := m.Called(ctx, key, data, contentType)
	if obj, ok := args.Get(0).(*storage.Object); ok {
		return obj, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockObjectStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// mockGenerator is a testify mock of ImageGenerator
type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) ([]byte, error) {
	args := m.Called(ctx, prompt)
	if data, ok := args.Get(0).([]byte); ok {
		return data, args.Error(1)
	}
	return nil, args.Error(1)
}

// recordingIndexer captures index calls
type recordingIndexer struct {
	mu      sync.Mutex
	indexed []string
	removed []string
}

func (r *recordingIndexer) IndexBook(ctx context.Context, book *domain.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexed = append(r.indexed, book.ID)
	return nil
}

func (r *recordingIndexer) RemoveBook(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, id)
	return nil
}

func (r *recordingIndexer) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.indexed), len(r.removed)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }
