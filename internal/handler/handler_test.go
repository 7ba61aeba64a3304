package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beyond-pages/internal/config"
	"beyond-pages/internal/container"
	"beyond-pages/internal/domain"
	"beyond-pages/internal/middleware"
	"beyond-pages/internal/realtime"
	"beyond-pages/internal/repository"
	"beyond-pages/internal/search"
	"beyond-pages/internal/service"
	"beyond-pages/internal/service/guest"
	"beyond-pages/pkg/database"
	"beyond-pages/pkg/errors"
	"beyond-pages/pkg/kvstore"
	"beyond-pages/pkg/logger"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	require.True(t, env.Success, rec.Body.String())
	if dst != nil {
		require.NoError(t, json.Unmarshal(env.Data, dst))
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errors.ErrorResponse {
	t.Helper()
	var body errors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	assert.False(t, body.Success)
	return body
}

func withUser(r *http.Request, id string) *http.Request {
	user := &domain.User{ID: id, Email: id + "@example.com"}
	return r.WithContext(context.WithValue(r.Context(), middleware.UserContextKey, user))
}

func newGuestRouter(cfg guest.Config) (*chi.Mux, *guest.Service) {
	log := logger.Nop()
	guests := guest.NewService(kvstore.NewMemory(), cfg, log)
	h := NewGuestHandler(guests, log)

	r := chi.NewRouter()
	r.Route("/api/guest", func(r chi.Router) {
		r.Post("/session", h.Enter)
		r.Get("/session", h.Validate)
		r.Delete("/session", h.Clear)
		r.Post("/limits/{action}", h.CheckLimit)
		r.Get("/posts", h.ListPosts)
		r.Post("/posts", h.CreatePost)
		r.Post("/posts/{id}/replies", h.CreateReply)
	})
	return r, guests
}

func serve(h http.Handler, method, target, guestID, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64)")
	req.Header.Set("Accept-Language", "en-GB,en;q=0.9")
	if guestID != "" {
		req.Header.Set(middleware.GuestHeader, guestID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func enterGuest(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := serve(h, http.MethodPost, "/api/guest/session", "", `{"screenWidth":1440,"screenHeight":900,"timezoneOffset":-60}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	id := rec.Header().Get(middleware.GuestHeader)
	require.NotEmpty(t, id)
	return id
}

func TestGuestHandler_SessionLifecycle(t *testing.T) {
	router, _ := newGuestRouter(guest.DefaultConfig())

	id := enterGuest(t, router)
	assert.Equal(t, guest.GuestID(guest.Environment{
		UserAgent:      "Mozilla/5.0 (X11; Linux x86_64)",
		Locale:         "en-GB",
		ScreenWidth:    1440,
		ScreenHeight:   900,
		TimezoneOffset: -60,
	}), id)

	var state SessionResponse
	rec := serve(router, http.MethodGet, "/api/guest/session", id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &state)
	assert.True(t, state.Valid)
	require.NotNil(t, state.Session)
	assert.Equal(t, id, state.Session.GuestID)
	require.NotNil(t, state.ExpiresAt)
	assert.WithinDuration(t, state.Session.CreatedAt.Add(24*time.Hour), *state.ExpiresAt, time.Second)

	rec = serve(router, http.MethodDelete, "/api/guest/session", id, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(router, http.MethodGet, "/api/guest/session", id, "")
	decodeData(t, rec, &state)
	assert.False(t, state.Valid)
	assert.Nil(t, state.Session)

	rec = serve(router, http.MethodGet, "/api/guest/session", "", "")
	decodeData(t, rec, &state)
	assert.False(t, state.Valid)
}

func TestGuestHandler_EnterWithoutBody(t *testing.T) {
	router, _ := newGuestRouter(guest.DefaultConfig())

	rec := serve(router, http.MethodPost, "/api/guest/session", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, guest.ValidID(rec.Header().Get(middleware.GuestHeader)))

	rec = serve(router, http.MethodPost, "/api/guest/session", "", `{"screenWidth":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGuestHandler_CheckLimit(t *testing.T) {
	router, _ := newGuestRouter(guest.DefaultConfig())
	id := enterGuest(t, router)

	for i := 1; i <= 2; i++ {
		var d guest.Decision
		rec := serve(router, http.MethodPost, "/api/guest/limits/like?max=2", id, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		decodeData(t, rec, &d)
		assert.True(t, d.Allowed)
		assert.Equal(t, i, d.Count)
	}

	var d guest.Decision
	rec := serve(router, http.MethodPost, "/api/guest/limits/like?max=2", id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &d)
	assert.False(t, d.Allowed)
	assert.Equal(t, 2, d.Count)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	tests := []struct {
		name    string
		target  string
		guestID string
		status  int
		errType errors.ErrorType
	}{
		{name: "unknown action needs max", target: "/api/guest/limits/like", guestID: id, status: http.StatusBadRequest, errType: errors.ErrorTypeValidation},
		{name: "bad max", target: "/api/guest/limits/post?max=-1", guestID: id, status: http.StatusBadRequest, errType: errors.ErrorTypeValidation},
		{name: "no session", target: "/api/guest/limits/post", guestID: "guest_unknown", status: http.StatusUnauthorized, errType: errors.ErrorTypeSessionExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, http.MethodPost, tt.target, tt.guestID, "")
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.errType, decodeError(t, rec).Error.Type)
		})
	}
}

func TestGuestHandler_Posts(t *testing.T) {
	cfg := guest.DefaultConfig()
	cfg.PostLimit = 1
	router, _ := newGuestRouter(cfg)
	id := enterGuest(t, router)

	var post guest.Post
	rec := serve(router, http.MethodPost, "/api/guest/posts", id, `{"content":"<b>Loved</b> the ending","bookTitle":"Piranesi"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	decodeData(t, rec, &post)
	assert.Equal(t, "Loved the ending", post.Content)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = serve(router, http.MethodPost, "/api/guest/posts", id, `{"content":"one more"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, errors.ErrorTypeRateLimit, decodeError(t, rec).Error.Type)

	rec = serve(router, http.MethodPost, "/api/guest/posts/"+post.ID+"/replies", id, `{"content":"Agreed!"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = serve(router, http.MethodPost, "/api/guest/posts/missing/replies", id, `{"content":"Agreed!"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var posts []guest.Post
	rec = serve(router, http.MethodGet, "/api/guest/posts", id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &posts)
	require.Len(t, posts, 1)
	require.Len(t, posts[0].Replies, 1)
	assert.Equal(t, "Agreed!", posts[0].Replies[0].Content)

	rec = serve(router, http.MethodGet, "/api/guest/posts", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPreferenceHandler(t *testing.T) {
	log := logger.Nop()
	store := kvstore.NewMemory()
	guests := guest.NewService(store, guest.DefaultConfig(), log)
	h := NewPreferenceHandler(service.NewPreferenceService(store), log)

	r := chi.NewRouter()
	r.Use(middleware.Guest(guests, log))
	r.Get("/api/preferences", h.Get)
	r.Put("/api/preferences", h.Set)

	rec := serve(r, http.MethodGet, "/api/preferences", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	session, err := guests.Enter(context.Background(), guest.Environment{UserAgent: "test"})
	require.NoError(t, err)

	var prefs domain.Preferences
	rec = serve(r, http.MethodGet, "/api/preferences", session.GuestID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &prefs)
	assert.False(t, prefs.HighContrast)

	rec = serve(r, http.MethodPut, "/api/preferences", session.GuestID, `{"high_contrast":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(r, http.MethodGet, "/api/preferences", session.GuestID, "")
	decodeData(t, rec, &prefs)
	assert.True(t, prefs.HighContrast)

	// signed-in users are keyed by user id, not by the guest header
	req := withUser(httptest.NewRequest(http.MethodGet, "/api/preferences", nil), "user-1")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	decodeData(t, rec, &prefs)
	assert.False(t, prefs.HighContrast)
}

func TestHighlightHandler_Detect(t *testing.T) {
	h := NewHighlightHandler(service.NewHighlightService(nil, nil, logger.Nop()), logger.Nop())

	body := `{"text":"She wrote \"a reader lives a thousand lives\" in the margin.\n> Not all those who wander are lost\n\"short\""}`
	req := httptest.NewRequest(http.MethodPost, "/api/highlights/detect", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Detect(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Quotes []string `json:"quotes"`
	}
	decodeData(t, rec, &out)
	assert.Equal(t, []string{"a reader lives a thousand lives", "Not all those who wander are lost"}, out.Quotes)
}

// memBooks is just enough of a books table for the handler tests
type memBooks struct {
	repository.BookRepository
	mu    sync.Mutex
	books map[string]*domain.Book
}

func newMemBooks() *memBooks {
	return &memBooks{books: map[string]*domain.Book{}}
}

func (m *memBooks) Create(ctx context.Context, book *domain.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	book.ID = uuid.NewString()
	book.CreatedAt = time.Now()
	book.UpdatedAt = book.CreatedAt
	clone := *book
	m.books[book.ID] = &clone
	return nil
}

func (m *memBooks) Get(ctx context.Context, userID, id string) (*domain.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok || b.UserID != userID {
		return nil, nil
	}
	clone := *b
	return &clone, nil
}

func (m *memBooks) Search(ctx context.Context, userID, query string, limit int) ([]*domain.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Book
	for _, b := range m.books {
		if strings.Contains(strings.ToLower(b.Title), strings.ToLower(query)) && (userID == "" || b.UserID == userID) {
			out = append(out, b)
		}
	}
	return out, nil
}

func newBookRouter(books *memBooks) http.Handler {
	log := logger.Nop()
	h := NewBookHandler(service.NewBookService(books, nil, log), service.NewCoverService(books, nil, nil, nil, log), log)
	r := chi.NewRouter()
	r.Post("/api/books", h.Create)
	r.Get("/api/books/{id}", h.Get)
	r.Post("/api/books/{id}/cover", h.GenerateCover)
	return r
}

func TestBookHandler(t *testing.T) {
	books := newMemBooks()
	router := newBookRouter(books)

	do := func(req *http.Request) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := do(httptest.NewRequest(http.MethodPost, "/api/books", strings.NewReader(`{"title":"Dune"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(withUser(httptest.NewRequest(http.MethodPost, "/api/books", strings.NewReader(`{"title":"Dune","author":"Frank Herbert","rating":5}`)), "user-1"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created domain.Book
	decodeData(t, rec, &created)
	assert.Equal(t, "Dune", created.Title)
	assert.Equal(t, domain.BookStatusWantToRead, created.Status)
	assert.Equal(t, "user-1", created.UserID)

	rec = do(withUser(httptest.NewRequest(http.MethodGet, "/api/books/"+created.ID, nil), "user-1"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(withUser(httptest.NewRequest(http.MethodGet, "/api/books/"+created.ID, nil), "user-2"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(withUser(httptest.NewRequest(http.MethodPost, "/api/books", strings.NewReader(`{"title":"Dune","rating":9}`)), "user-1"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "rating", decodeError(t, rec).Error.Details["field"])

	rec = do(withUser(httptest.NewRequest(http.MethodPost, "/api/books/"+created.ID+"/cover", nil), "user-1"))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, errors.ErrorTypeBackend, decodeError(t, rec).Error.Type)
}

func TestSearchHandler(t *testing.T) {
	books := newMemBooks()
	require.NoError(t, books.Create(context.Background(), &domain.Book{UserID: "u1", Title: "The Left Hand of Darkness", Status: domain.BookStatusRead}))
	require.NoError(t, books.Create(context.Background(), &domain.Book{UserID: "u2", Title: "Darkness Visible", Status: domain.BookStatusReading}))

	h := NewSearchHandler(search.NewService(nil, books, logger.Nop()), logger.Nop())

	tests := []struct {
		name   string
		query  string
		status int
		total  int
	}{
		{name: "all shelves", query: "q=darkness", status: http.StatusOK, total: 2},
		{name: "one shelf", query: "q=darkness&user_id=u1", status: http.StatusOK, total: 1},
		{name: "status filter", query: "q=darkness&status=reading", status: http.StatusOK, total: 1},
		{name: "missing query", query: "", status: http.StatusBadRequest},
		{name: "bad status", query: "q=dune&status=shelved", status: http.StatusBadRequest},
		{name: "bad limit", query: "q=dune&limit=x", status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Books(rec, httptest.NewRequest(http.MethodGet, "/api/search/books?"+tt.query, nil))
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status != http.StatusOK {
				return
			}
			var resp search.Response
			decodeData(t, rec, &resp)
			assert.Equal(t, tt.total, resp.Total)
			assert.Equal(t, search.SourcePostgres, resp.Source)
		})
	}
}

func TestRealtimeHandler_Stream(t *testing.T) {
	hub := realtime.NewHub("", logger.Nop())
	h := NewRealtimeHandler(hub, logger.Nop())

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, withUser(req, "user-1"))
		})
	})
	r.Get("/api/realtime/{table}", h.Stream)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// a client-supplied filter on a private table is replaced by the owner
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/realtime/books?column=user_id&value=user-2", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() (string, string) {
		var name, data string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			switch {
			case line == "":
				return name, data
			case strings.HasPrefix(line, "event: "):
				name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			}
		}
	}

	name, data := readEvent()
	assert.Equal(t, "ready", name)
	assert.JSONEq(t, `{"table":"books"}`, data)
	require.Equal(t, 1, hub.Subscribers())

	hub.Publish(&realtime.Event{Table: "books", Type: realtime.EventInsert, Record: map[string]interface{}{"id": "b2", "user_id": "user-2"}})
	hub.Publish(&realtime.Event{Table: "books", Type: realtime.EventInsert, Record: map[string]interface{}{"id": "b1", "user_id": "user-1"}})

	name, data = readEvent()
	assert.Equal(t, "INSERT", name)
	var event realtime.Event
	require.NoError(t, json.Unmarshal([]byte(data), &event))
	assert.Equal(t, "b1", event.Record["id"])
}

func TestRealtimeHandler_Rejects(t *testing.T) {
	h := NewRealtimeHandler(realtime.NewHub("", logger.Nop()), logger.Nop())
	r := chi.NewRouter()
	r.Get("/api/realtime/{table}", h.Stream)

	tests := []struct {
		name   string
		target string
		user   bool
		status int
	}{
		{name: "anonymous", target: "/api/realtime/books", status: http.StatusUnauthorized},
		{name: "unknown table", target: "/api/realtime/profiles", user: true, status: http.StatusNotFound},
		{name: "bad column", target: "/api/realtime/community_posts?column=user_id;drop", user: true, status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.user {
				req = withUser(req, "user-1")
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestHealthHandler_Check(t *testing.T) {
	c, err := container.New(&config.Config{Environment: "test"}, logger.Nop(), &database.PostgresDB{})
	require.NoError(t, err)
	defer c.Search.Close()

	h := NewHealthHandler(c)
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return fixed }

	rec := httptest.NewRecorder()
	h.Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	decodeData(t, rec, &resp)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "beyond-pages", resp.Service)
	assert.True(t, fixed.Equal(resp.Timestamp))
	assert.Equal(t, map[string]string{
		"database": "not_configured",
		"redis":    "memory",
		"search":   "postgres",
	}, resp.Dependencies)
}

func TestDecodeJSON_TooLarge(t *testing.T) {
	body := `{"text":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()

	var dst domain.DetectQuotesRequest
	err := decodeJSON(rec, req, &dst)
	require.Error(t, err)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, "Request body is too large", appErr.Message)
}

func TestParseBefore(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?before=2025-01-02T03:04:05Z", nil)
	before, err := parseBefore(req)
	require.NoError(t, err)
	require.NotNil(t, before)
	assert.Equal(t, 2025, before.Year())

	_, err = parseBefore(httptest.NewRequest(http.MethodGet, "/?before=yesterday", nil))
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	before, err = parseBefore(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Nil(t, before)
}

func TestAuthHandler_Me(t *testing.T) {
	h := NewAuthHandler(logger.Nop())

	rec := httptest.NewRecorder()
	h.Me(rec, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.Me(rec, withUser(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil), "user-1"))
	require.Equal(t, http.StatusOK, rec.Code)
	var out SessionUserResponse
	decodeData(t, rec, &out)
	require.NotNil(t, out.User)
	assert.Equal(t, "user-1", out.User.ID)
}

func TestTestingHandler_ReindexSearch(t *testing.T) {
	svc := search.NewService(nil, newMemBooks(), logger.Nop())

	tests := []struct {
		name        string
		environment string
		status      int
	}{
		{"production is refused", "production", http.StatusForbidden},
		{"development without an index", "development", http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewTestingHandler(svc, tt.environment, logger.Nop())
			rec := httptest.NewRecorder()
			h.ReindexSearch(rec, httptest.NewRequest(http.MethodPost, "/api/testing/reindex-search", nil))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
