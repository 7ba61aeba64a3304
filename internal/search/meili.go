package search

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"

	"beyond-pages/pkg/logger"
)

const idxBooks = "beyond_pages_books"

const healthInterval = 10 * time.Second

// Meili indexes and searches books in Meilisearch
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
	logger  *logger.Logger
}

// NewMeili creates a Meilisearch client, configures the books index and
// starts a background health monitor. An unreachable server is not an error:
// searches fall back to Postgres until it recovers.
func NewMeili(url, apiKey string, log *logger.Logger) *Meili {
	m := &Meili{
		client: meili.New(url, meili.WithAPIKey(apiKey)),
		done:   make(chan struct{}),
		logger: log.Named("meilisearch"),
	}

	if _, err := m.client.Health(); err != nil {
		m.logger.WithError(err).WithField("url", url).Warn("Meilisearch unavailable")
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{Uid: idxBooks, PrimaryKey: "id"}); err != nil {
		m.logger.WithError(err).Debug("Create index failed (may already exist)")
	}

	index := m.client.Index(idxBooks)
	filterable := []interface{}{"userId", "status"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		m.logger.WithError(err).Warn("Failed to update filterable attributes")
	}
	searchable := []string{"title", "author", "isbn"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		m.logger.WithError(err).Warn("Failed to update searchable attributes")
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.logger.Info("Meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search queries the books index
func (m *Meili) Search(q Query) ([]BookRecord, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	req := &meili.SearchRequest{Limit: int64(q.Limit)}
	var filters []string
	if q.UserID != "" {
		filters = append(filters, fmt.Sprintf("userId = %q", q.UserID))
	}
	if q.Status != "" {
		filters = append(filters, fmt.Sprintf("status = %q", string(q.Status)))
	}
	if len(filters) > 0 {
		req.Filter = strings.Join(filters, " AND ")
	}

	resp, err := m.client.Index(idxBooks).Search(q.Text, req)
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch search: %w", err)
	}

	results := make([]BookRecord, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		rec, err := decodeHit(hit)
		if err != nil {
			m.logger.WithError(err).Debug("Skipping undecodable hit")
			continue
		}
		results = append(results, rec)
	}
	return results, int(resp.EstimatedTotalHits), nil
}

func decodeHit(hit meili.Hit) (BookRecord, error) {
	var rec BookRecord
	raw, err := json.Marshal(hit)
	if err != nil {
		return rec, err
	}
	err = json.Unmarshal(raw, &rec)
	return rec, err
}

// IndexBook adds or updates a book in the search index
func (m *Meili) IndexBook(rec BookRecord) error {
	_, err := m.client.Index(idxBooks).AddDocuments([]BookRecord{rec}, nil)
	return err
}

// IndexBooks bulk-indexes books
func (m *Meili) IndexBooks(records []BookRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(idxBooks).AddDocuments(records, nil)
	return err
}

// DeleteBook removes a book from the search index
func (m *Meili) DeleteBook(id string) error {
	_, err := m.client.Index(idxBooks).DeleteDocument(id, nil)
	return err
}
