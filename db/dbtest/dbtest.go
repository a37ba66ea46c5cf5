// Package dbtest поднимает in-memory SQLite для тестов сервисов и хендлеров.
package dbtest

import (
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jdamiba/twitter-clone/db"
	"github.com/jdamiba/twitter-clone/models"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var seq atomic.Int64

// Setup открывает новую базу в памяти, мигрирует схему и подменяет db.ORM.
// Одно соединение: иначе каждое соединение видело бы свою пустую базу.
func Setup(t testing.TB) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), db.GormConfig())
	require.NoError(t, err)
	sqlDB, err := database.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.Migrate(database))

	db.ORM = database
	t.Cleanup(func() {
		db.ORM = nil
		sqlDB.Close()
	})
	return database
}

// CreateUser создает пользователя со случайными, но уникальными id и username
func CreateUser(t testing.TB) *models.User {
	t.Helper()
	n := seq.Add(1)
	first := gofakeit.FirstName()
	user := &models.User{
		ID:          gofakeit.Numerify("user_####_") + strconv.FormatInt(n, 10),
		Username:    strings.ToLower(first) + "_" + strconv.FormatInt(n, 10),
		DisplayName: first + " " + gofakeit.LastName(),
	}
	require.NoError(t, db.ORM.Create(user).Error)
	return user
}

// CreatePost вставляет пост напрямую с заданным временем создания
func CreatePost(t testing.TB, authorID, content string, replyTo *int64, createdAt time.Time) *models.Post {
	t.Helper()
	post := &models.Post{
		UserID:    authorID,
		Content:   content,
		ReplyToID: replyTo,
		CreatedAt: createdAt.UTC(),
		UpdatedAt: createdAt.UTC(),
	}
	require.NoError(t, db.ORM.Create(post).Error)
	return post
}

func Like(t testing.TB, userID string, postID int64) {
	t.Helper()
	require.NoError(t, db.ORM.Create(&models.Like{UserID: userID, PostID: postID}).Error)
}

func Follow(t testing.TB, followerID, followedID string) {
	t.Helper()
	require.NoError(t, db.ORM.Create(&models.Follow{FollowerID: followerID, FollowedID: followedID}).Error)
}
