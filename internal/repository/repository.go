package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"beyond-pages/pkg/database"
)

const defaultListLimit = 50

// ErrUsernameTaken is returned when a profile write hits the username
// unique constraint.
var ErrUsernameTaken = errors.New("username already taken")

// NewRepositories wires every Postgres repository to db
func NewRepositories(db *database.PostgresDB) *Repositories {
	return &Repositories{
		Profile:   NewProfileRepository(db),
		Book:      NewBookRepository(db),
		Highlight: NewHighlightRepository(db),
		Community: NewCommunityRepository(db),
		Follow:    NewFollowRepository(db),
		Badge:     NewBadgeRepository(db),
		Image:     NewImageRepository(db),
	}
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// clampLimit keeps list sizes within [1, 100]
func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > 100 {
		return 100
	}
	return limit
}
