package services

import (
	"context"
	"fmt"
	"log"
	"time"
	"unicode/utf8"

	"github.com/jdamiba/twitter-clone/config"
	"github.com/jdamiba/twitter-clone/db"
	"github.com/jdamiba/twitter-clone/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const annotatedPostColumns = "p.id, p.user_id, p.content, p.reply_to_id, p.original_content, p.is_edited, " +
	"p.created_at, p.updated_at, COALESCE(u.username, '') AS username, COALESCE(u.display_name, '') AS display_name"

// annotatedPosts - базовый запрос постов вместе с автором
func annotatedPosts(q *gorm.DB) *gorm.DB {
	return q.Table("posts p").
		Select(annotatedPostColumns).
		Joins("LEFT JOIN users u ON u.id = p.user_id")
}

func validateContent(content string) error {
	n := utf8.RuneCountInString(content)
	if n == 0 {
		return newError(KindInvalidArgument, "content must not be empty")
	}
	if n > models.MaxPostLength {
		return newError(KindInvalidArgument, fmt.Sprintf("content must be at most %d characters", models.MaxPostLength))
	}
	return nil
}

type PostService struct {
	ledger  *LedgerService
	threads *ThreadService
	cache   *LikeCountCache
	events  Publisher
}

func NewPostService(ledger *LedgerService, threads *ThreadService, cache *LikeCountCache, events Publisher) *PostService {
	if events == nil {
		events = NopPublisher{}
	}
	return &PostService{ledger: ledger, threads: threads, cache: cache, events: events}
}

// CreatePost создает пост или ответ на существующий пост
func (ps *PostService) CreatePost(ctx context.Context, authorID, content string, replyToID *int64) (*models.AnnotatedPost, error) {
	if authorID == "" {
		return nil, ErrUnauthenticated
	}
	if err := validateContent(content); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	post := models.Post{
		UserID:    authorID,
		Content:   content,
		ReplyToID: replyToID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	var author models.User
	err := db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ?", authorID).Take(&author).Error
		if isRecordNotFound(err) {
			return newError(KindNotFound, "user not found")
		}
		if err != nil {
			return err
		}
		if replyToID != nil {
			var n int64
			if err := tx.Model(&models.Post{}).Where("id = ?", *replyToID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return newError(KindNotFound, "parent post not found")
			}
		}
		return tx.Create(&post).Error
	})
	if err != nil {
		return nil, storeError("create post", err)
	}

	ev := newActivityEvent(EventPostCreated, authorID)
	ev.PostID = post.ID
	emit(ctx, ps.events, ev)
	if config.DebugEnabled() {
		log.Printf("DEBUG: post %d created by %s", post.ID, authorID)
	}

	result := &models.AnnotatedPost{
		Post:        post,
		Username:    author.Username,
		DisplayName: author.DisplayName,
	}
	if post.IsRoot() {
		result.Replies = []*models.AnnotatedPost{}
	}
	return result, nil
}

// EditPost меняет текст поста. При первой правке сохраняется исходный текст,
// последующие правки его не трогают.
func (ps *PostService) EditPost(ctx context.Context, actorID string, postID int64, content string) (*models.AnnotatedPost, error) {
	if actorID == "" {
		return nil, ErrUnauthenticated
	}
	if err := validateContent(content); err != nil {
		return nil, err
	}

	var post models.Post
	err := db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND user_id = ?", postID, actorID).
			Take(&post).Error
		if isRecordNotFound(err) {
			return ErrNotFoundOrUnauthorized
		}
		if err != nil {
			return err
		}

		updates := map[string]interface{}{
			"content":    content,
			"is_edited":  true,
			"updated_at": time.Now().UTC(),
		}
		if !post.IsEdited {
			updates["original_content"] = post.Content
		}
		return tx.Model(&models.Post{}).Where("id = ?", post.ID).Updates(updates).Error
	})
	if err != nil {
		return nil, storeError("edit post", err)
	}

	return ps.loadPost(ctx, db.GetWriteDB(ctx), postID, actorID)
}

// DeletePost удаляет пост и его лайки. Ответы остаются с висячим reply_to_id.
func (ps *PostService) DeletePost(ctx context.Context, actorID string, postID int64) error {
	if actorID == "" {
		return ErrUnauthenticated
	}

	err := db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id = ? AND user_id = ?", postID, actorID).
			Take(&post).Error
		if isRecordNotFound(err) {
			return ErrNotFoundOrUnauthorized
		}
		if err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", postID).Delete(&models.Post{}).Error
	})
	if err != nil {
		return storeError("delete post", err)
	}

	ps.cache.Invalidate(ctx, postID)
	ev := newActivityEvent(EventPostDeleted, actorID)
	ev.PostID = postID
	emit(ctx, ps.events, ev)
	return nil
}

// GetPost возвращает пост для зрителя; корневой пост - вместе с ответами
func (ps *PostService) GetPost(ctx context.Context, postID int64, viewerID string) (*models.AnnotatedPost, error) {
	return ps.loadPost(ctx, db.GetReadOnlyDB(ctx), postID, viewerID)
}

func (ps *PostService) loadPost(ctx context.Context, conn *gorm.DB, postID int64, viewerID string) (*models.AnnotatedPost, error) {
	var items []*models.AnnotatedPost
	err := annotatedPosts(conn).
		Where("p.id = ?", postID).
		Limit(1).
		Scan(&items).Error
	if err != nil {
		return nil, storeError("get post", err)
	}
	if len(items) == 0 {
		return nil, newError(KindNotFound, "post not found")
	}

	if items[0].IsRoot() {
		err = ps.threads.Thread(ctx, viewerID, items)
	} else {
		err = ps.ledger.Annotate(ctx, viewerID, items)
	}
	if err != nil {
		return nil, err
	}
	return items[0], nil
}
