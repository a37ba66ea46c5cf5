package models

import (
	"time"
)

// User - профиль, заведенный внешним провайдером идентификации.
// Username после создания не меняется.
type User struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	Username    string    `gorm:"size:60;uniqueIndex;not null" json:"username"`
	DisplayName string    `gorm:"size:255" json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// UserProfile - пользователь вместе со счетчиками подписок
type UserProfile struct {
	User
	FollowersCount int64 `json:"followers_count"`
	FollowingCount int64 `json:"following_count"`
	IsFollowing    bool  `json:"is_following"`
}

// Follow - направленная подписка follower -> followed
type Follow struct {
	FollowerID string    `gorm:"primaryKey;size:64" json:"follower_id"`
	FollowedID string    `gorm:"primaryKey;size:64;index" json:"followed_id"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Follow) TableName() string {
	return "follows"
}
