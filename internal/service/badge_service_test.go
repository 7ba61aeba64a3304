package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beyond-pages/internal/domain"
	"beyond-pages/pkg/logger"
)

func TestEligibleBadges(t *testing.T) {
	tests := []struct {
		name  string
		stats domain.BadgeStats
		want  []domain.BadgeType
	}{
		{name: "nothing yet", stats: domain.BadgeStats{}, want: []domain.BadgeType{}},
		{name: "first book", stats: domain.BadgeStats{BooksRead: 1}, want: []domain.BadgeType{domain.BadgeFirstBook}},
		{name: "bookworm", stats: domain.BadgeStats{BooksRead: 10}, want: []domain.BadgeType{domain.BadgeFirstBook, domain.BadgeBookworm}},
		{name: "critic threshold", stats: domain.BadgeStats{Reviews: 4}, want: []domain.BadgeType{}},
		{name: "critic", stats: domain.BadgeStats{Reviews: 5}, want: []domain.BadgeType{domain.BadgeCritic}},
		{name: "quote collector", stats: domain.BadgeStats{Highlights: 10}, want: []domain.BadgeType{domain.BadgeQuoteCollector}},
		{name: "social", stats: domain.BadgeStats{Following: 5, Posts: 10}, want: []domain.BadgeType{domain.BadgeSocialButterfly, domain.BadgeCommunityVoice}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EligibleBadges(tt.stats))
		})
	}
}

func TestBadgeService_EvaluateAwardsOnce(t *testing.T) {
	ctx := context.Background()
	badges := newMemBadges(domain.BadgeStats{BooksRead: 1, Reviews: 5})
	svc := NewBadgeService(badges, logger.Nop())

	awarded, err := svc.Evaluate(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, awarded, 2)

	awarded, err = svc.Evaluate(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, awarded)

	list, err := svc.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
