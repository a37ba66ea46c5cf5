package models

import "time"

// MaxPostLength - лимит длины поста в символах (rune)
const MaxPostLength = 140

// Post - модель поста пользователя. ReplyToID == nil у корневых постов.
type Post struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          string    `gorm:"size:64;index;not null" json:"user_id"`
	Content         string    `gorm:"type:text;not null" json:"content"`
	ReplyToID       *int64    `gorm:"index" json:"reply_to_id"`
	OriginalContent *string   `gorm:"type:text" json:"original_content"`
	IsEdited        bool      `gorm:"not null;default:false" json:"is_edited"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Post) TableName() string {
	return "posts"
}

// IsRoot reports whether the post starts a thread
func (p Post) IsRoot() bool {
	return p.ReplyToID == nil
}

// Like - отметка "нравится"; пара (UserID, PostID) уникальна
type Like struct {
	UserID    string    `gorm:"primaryKey;size:64" json:"user_id"`
	PostID    int64     `gorm:"primaryKey;index" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (Like) TableName() string {
	return "likes"
}

// AnnotatedPost - пост с автором и данными для конкретного зрителя
type AnnotatedPost struct {
	Post
	Username    string           `json:"username"`
	DisplayName string           `json:"display_name"`
	LikesCount  int64            `json:"likes_count"`
	IsLiked     bool             `json:"is_liked"`
	Replies     []*AnnotatedPost `gorm:"-" json:"replies"`
}

// FeedPage - ответ API для ленты
type FeedPage struct {
	Items      []*AnnotatedPost `json:"items"`
	Page       int              `json:"page"`
	TotalPages int              `json:"total_pages"`
	Total      int64            `json:"total"`
}
