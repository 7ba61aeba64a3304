package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beyond-pages/internal/domain"
	"beyond-pages/pkg/errors"
	"beyond-pages/pkg/logger"
)

func TestHighlightService_Create(t *testing.T) {
	ctx := context.Background()
	books := newMemBooks()
	book := &domain.Book{UserID: "user-1", Title: "Emma"}
	require.NoError(t, books.Create(ctx, book))

	svc := NewHighlightService(&memHighlights{}, books, logger.Nop())

	h, err := svc.Create(ctx, "user-1", book.ID, &domain.CreateHighlightRequest{
		Content:    "  It is a truth <i>universally</i> acknowledged  ",
		PageNumber: intPtr(1),
		Note:       strPtr(""),
	})
	require.NoError(t, err)
	assert.Equal(t, "It is a truth universally acknowledged", h.Content)
	assert.Nil(t, h.Note)

	_, err = svc.Create(ctx, "user-2", book.ID, &domain.CreateHighlightRequest{Content: "quote"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound), "other users cannot highlight my book")

	_, err = svc.Create(ctx, "user-1", book.ID, &domain.CreateHighlightRequest{Content: "<script>x</script>"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	_, err = svc.Create(ctx, "user-1", book.ID, &domain.CreateHighlightRequest{Content: "ok", PageNumber: intPtr(-2)})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	list, err := svc.ListByBook(ctx, "user-1", book.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.Delete(ctx, "user-1", h.ID))
	assert.True(t, errors.IsType(svc.Delete(ctx, "user-1", h.ID), errors.ErrorTypeNotFound))
}

func TestHighlightService_Suggest(t *testing.T) {
	svc := NewHighlightService(&memHighlights{}, newMemBooks(), logger.Nop())

	text := `She said "a room of one's own & money" twice. "a room of one's own & money"`
	got, err := svc.Suggest(text)
	require.NoError(t, err)
	assert.Equal(t, []string{"a room of one's own &amp; money"}, got)

	got, err = svc.Suggest("no quotes here")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = svc.Suggest(strings.Repeat("x", maxDetectInput+1))
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}
