package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

const usage = "Usage: go run ./cmd/migrate [drop|up|seed|triggers|run <file.sql>]"

// changeTables publish row changes on the realtime channel
var changeTables = []string{
	"books",
	"highlights",
	"badges",
	"community_posts",
	"post_replies",
	"user_follows",
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	command := os.Args[1]

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close(ctx)

	switch command {
	case "drop":
		if err := dropTables(ctx, conn); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		fmt.Println("✅ All tables dropped successfully")

	case "up":
		if err := createTables(ctx, conn); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		if err := installTriggers(ctx, conn); err != nil {
			log.Fatalf("Failed to install change triggers: %v", err)
		}
		fmt.Println("✅ All tables created successfully")

	case "triggers":
		if err := installTriggers(ctx, conn); err != nil {
			log.Fatalf("Failed to install change triggers: %v", err)
		}
		fmt.Println("✅ Change triggers installed")

	case "seed":
		if err := seedData(ctx, conn); err != nil {
			log.Fatalf("Failed to seed data: %v", err)
		}
		fmt.Println("✅ Data seeded successfully")

	case "run":
		if len(os.Args) < 3 {
			fmt.Println(usage)
			os.Exit(1)
		}
		if err := runFile(ctx, conn, os.Args[2]); err != nil {
			log.Fatalf("Failed to run migration: %v", err)
		}
		fmt.Printf("✅ Applied %s\n", os.Args[2])

	default:
		fmt.Printf("Unknown command: %s\n", command)
		fmt.Println(usage)
		os.Exit(1)
	}
}

func dropTables(ctx context.Context, conn *pgx.Conn) error {
	queries := []string{
		`DROP TABLE IF EXISTS generated_images CASCADE`,
		`DROP TABLE IF EXISTS badges CASCADE`,
		`DROP TABLE IF EXISTS user_follows CASCADE`,
		`DROP TABLE IF EXISTS post_replies CASCADE`,
		`DROP TABLE IF EXISTS community_posts CASCADE`,
		`DROP TABLE IF EXISTS highlights CASCADE`,
		`DROP TABLE IF EXISTS books CASCADE`,
		`DROP TABLE IF EXISTS profiles CASCADE`,
		`DROP FUNCTION IF EXISTS notify_beyond_pages_change() CASCADE`,
	}

	for _, query := range queries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
		fmt.Printf("  Dropped: %s\n", query)
	}

	return nil
}

func createTables(ctx context.Context, conn *pgx.Conn) error {
	queries := []string{
		// Profiles share their id with the Supabase auth user
		`CREATE TABLE IF NOT EXISTS profiles (
			id UUID PRIMARY KEY,
			username VARCHAR(20) UNIQUE NOT NULL,
			display_name VARCHAR(100),
			bio TEXT,
			avatar_url TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS books (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL,
			title VARCHAR(300) NOT NULL,
			author VARCHAR(300),
			isbn VARCHAR(13),
			status VARCHAR(20) NOT NULL DEFAULT 'want_to_read'
				CHECK (status IN ('want_to_read', 'reading', 'read')),
			rating SMALLINT CHECK (rating BETWEEN 0 AND 5),
			review TEXT,
			cover_url TEXT,
			description TEXT,
			page_count INTEGER CHECK (page_count > 0),
			current_page INTEGER NOT NULL DEFAULT 0 CHECK (current_page >= 0),
			started_at TIMESTAMPTZ,
			finished_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS highlights (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL,
			book_id UUID NOT NULL REFERENCES books(id) ON DELETE CASCADE,
			content TEXT NOT NULL,
			page_number INTEGER,
			note TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS community_posts (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL,
			book_id UUID REFERENCES books(id) ON DELETE SET NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS post_replies (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			post_id UUID NOT NULL REFERENCES community_posts(id) ON DELETE CASCADE,
			user_id UUID NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS user_follows (
			follower_id UUID NOT NULL,
			following_id UUID NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (follower_id, following_id),
			CHECK (follower_id <> following_id)
		)`,

		`CREATE TABLE IF NOT EXISTS badges (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL,
			badge_type VARCHAR(50) NOT NULL,
			awarded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, badge_type)
		)`,

		`CREATE TABLE IF NOT EXISTS generated_images (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL,
			book_id UUID NOT NULL REFERENCES books(id) ON DELETE CASCADE,
			prompt TEXT NOT NULL,
			storage_path TEXT NOT NULL,
			public_url TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// Create indexes
		`CREATE INDEX IF NOT EXISTS idx_books_user_created ON books(user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_books_user_status ON books(user_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_highlights_user_created ON highlights(user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_highlights_book ON highlights(book_id)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_created ON community_posts(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_user_created ON community_posts(user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_replies_post ON post_replies(post_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_follows_following ON user_follows(following_id)`,
		`CREATE INDEX IF NOT EXISTS idx_images_user_book ON generated_images(user_id, book_id, created_at DESC)`,
	}

	for _, query := range queries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w\nQuery: %s", err, query)
		}
		fmt.Printf("  Created: %s\n", getTableName(query))
	}

	return nil
}

// notifyFunction publishes {table, type, record, old_record} on the realtime
// channel. NOTIFY payloads are limited to 8000 bytes, so oversized rows are
// reduced to their key columns.
const notifyFunction = `
CREATE OR REPLACE FUNCTION notify_beyond_pages_change() RETURNS trigger AS $$
DECLARE
	new_row jsonb := CASE WHEN TG_OP = 'DELETE' THEN NULL ELSE to_jsonb(NEW) END;
	old_row jsonb := CASE WHEN TG_OP = 'INSERT' THEN NULL ELSE to_jsonb(OLD) END;
	payload jsonb;
BEGIN
	payload := jsonb_build_object('table', TG_TABLE_NAME, 'type', TG_OP, 'record', new_row, 'old_record', old_row);
	IF octet_length(payload::text) > 7900 THEN
		payload := jsonb_build_object(
			'table', TG_TABLE_NAME,
			'type', TG_OP,
			'record', (SELECT jsonb_object_agg(key, value) FROM jsonb_each(new_row)
				WHERE key IN ('id', 'user_id', 'post_id', 'book_id', 'follower_id', 'following_id', 'status')),
			'old_record', (SELECT jsonb_object_agg(key, value) FROM jsonb_each(old_row)
				WHERE key IN ('id', 'user_id', 'post_id', 'book_id', 'follower_id', 'following_id', 'status')));
	END IF;
	PERFORM pg_notify('beyond_pages_changes', payload::text);
	RETURN NULL;
END;
$$ LANGUAGE plpgsql`

func installTriggers(ctx context.Context, conn *pgx.Conn) error {
	if _, err := conn.Exec(ctx, notifyFunction); err != nil {
		return fmt.Errorf("failed to create notify function: %w", err)
	}

	for _, table := range changeTables {
		name := pgx.Identifier{table + "_changes"}.Sanitize()
		ident := pgx.Identifier{table}.Sanitize()
		queries := []string{
			fmt.Sprintf(`DROP TRIGGER IF EXISTS %s ON %s`, name, ident),
			fmt.Sprintf(`CREATE TRIGGER %s AFTER INSERT OR UPDATE OR DELETE ON %s
				FOR EACH ROW EXECUTE FUNCTION notify_beyond_pages_change()`, name, ident),
		}
		for _, query := range queries {
			if _, err := conn.Exec(ctx, query); err != nil {
				return fmt.Errorf("failed to install trigger on %s: %w", table, err)
			}
		}
		fmt.Printf("  Trigger: %s\n", table)
	}

	return nil
}

func seedData(ctx context.Context, conn *pgx.Conn) error {
	const reader = "00000000-0000-4000-8000-000000000001"
	const friend = "00000000-0000-4000-8000-000000000002"

	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO profiles (id, username, display_name, bio) VALUES
		($1, 'bookworm', 'Ada Reader', 'Mostly science fiction, some poetry.'),
		($2, 'marginalia', 'Sam Notes', 'I write in the margins.')
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			display_name = EXCLUDED.display_name,
			bio = EXCLUDED.bio,
			updated_at = NOW()
	`, reader, friend); err != nil {
		return fmt.Errorf("failed to seed profiles: %w", err)
	}
	fmt.Println("  Seeded 2 profiles")

	var bookID string
	err = tx.QueryRow(ctx, `
		INSERT INTO books (user_id, title, author, status, rating, review, page_count, current_page, started_at, finished_at)
		VALUES ($1, 'The Left Hand of Darkness', 'Ursula K. Le Guin', 'read', 5,
			'<p>"Light is the left hand of darkness" stayed with me for weeks.</p>', 304, 304, NOW() - INTERVAL '30 days', NOW())
		RETURNING id
	`, reader).Scan(&bookID)
	if err != nil {
		return fmt.Errorf("failed to seed books: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO books (user_id, title, author, status, page_count, current_page, started_at)
		VALUES ($1, 'Piranesi', 'Susanna Clarke', 'reading', 272, 80, NOW() - INTERVAL '3 days')
	`, reader); err != nil {
		return fmt.Errorf("failed to seed books: %w", err)
	}
	fmt.Println("  Seeded 2 books")

	if _, err := tx.Exec(ctx, `
		INSERT INTO highlights (user_id, book_id, content, page_number)
		VALUES ($1, $2, 'Light is the left hand of darkness', 233)
	`, reader, bookID); err != nil {
		return fmt.Errorf("failed to seed highlights: %w", err)
	}

	var postID string
	err = tx.QueryRow(ctx, `
		INSERT INTO community_posts (user_id, book_id, content)
		VALUES ($1, $2, 'Finished this one last night. Still thinking about Estraven.')
		RETURNING id
	`, reader, bookID).Scan(&postID)
	if err != nil {
		return fmt.Errorf("failed to seed posts: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO post_replies (post_id, user_id, content) VALUES ($1, $2, 'The ice crossing chapters are unforgettable.')
	`, postID, friend); err != nil {
		return fmt.Errorf("failed to seed replies: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO user_follows (follower_id, following_id) VALUES ($1, $2), ($2, $1)
		ON CONFLICT DO NOTHING
	`, reader, friend); err != nil {
		return fmt.Errorf("failed to seed follows: %w", err)
	}
	fmt.Println("  Seeded highlights, posts and follows")

	return tx.Commit(ctx)
}

func runFile(ctx context.Context, conn *pgx.Conn, path string) error {
	if !strings.HasSuffix(path, ".sql") {
		return fmt.Errorf("migration file must end in .sql: %s", path)
	}
	sqlBytes, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	if _, err := conn.Exec(ctx, string(sqlBytes)); err != nil {
		return fmt.Errorf("failed to execute %s: %w", path, err)
	}
	return nil
}

func getTableName(query string) string {
	query = strings.Join(strings.Fields(query), " ")
	if len(query) > 50 {
		return query[:50] + "..."
	}
	return query
}
