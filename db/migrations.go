package db

import (
	"fmt"

	"github.com/jdamiba/twitter-clone/models"

	"gorm.io/gorm"
)

// Migrate создает таблицы и, для postgres, внешние ключи и индексы ленты
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Post{}, &models.Like{}, &models.Follow{}); err != nil {
		return fmt.Errorf("failed to automigrate: %w", err)
	}
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	if err := createForeignKeys(db); err != nil {
		return err
	}
	return createFeedIndexes(db)
}

// createForeignKeys навешивает каскадные FK. reply_to_id намеренно без FK:
// ответ переживает удаление родителя.
func createForeignKeys(db *gorm.DB) error {
	constraints := []struct {
		name, table, column, ref string
	}{
		{"fk_posts_user", "posts", "user_id", "users(id)"},
		{"fk_likes_user", "likes", "user_id", "users(id)"},
		{"fk_likes_post", "likes", "post_id", "posts(id)"},
		{"fk_follows_follower", "follows", "follower_id", "users(id)"},
		{"fk_follows_followed", "follows", "followed_id", "users(id)"},
	}
	for _, c := range constraints {
		stmt := fmt.Sprintf(`
	DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = '%s') THEN
			ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s ON DELETE CASCADE;
		END IF;
	END
	$$;
	`, c.name, c.table, c.name, c.column, c.ref)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create constraint %s: %w", c.name, err)
		}
	}
	return nil
}

func createFeedIndexes(db *gorm.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_posts_created_id ON posts (created_at DESC, id DESC)",
		"CREATE INDEX IF NOT EXISTS idx_posts_user_created ON posts (user_id, created_at DESC, id DESC)",
	}
	for _, stmt := range indexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index (%s): %w", stmt, err)
		}
	}
	return nil
}
