package services

import (
	"context"
	"strings"

	"github.com/jdamiba/twitter-clone/db"
	"github.com/jdamiba/twitter-clone/models"

	"gorm.io/gorm"
)

const DEFAULT_PAGE_SIZE = 10 // Размер страницы ленты по умолчанию

type FeedMode string

const (
	FeedGlobal    FeedMode = "global"
	FeedFollowing FeedMode = "following"
	FeedAuthor    FeedMode = "author"
	FeedLiked     FeedMode = "liked"
	FeedSearch    FeedMode = "search"
)

// FeedQuery описывает запрашиваемую страницу ленты.
// TargetID - автор для FeedAuthor и владелец лайков для FeedLiked.
type FeedQuery struct {
	Mode     FeedMode
	TargetID string
	ViewerID string
	Query    string
	Page     int
}

type FeedService struct {
	ledger   *LedgerService
	threads  *ThreadService
	pageSize int
}

func NewFeedService(ledger *LedgerService, threads *ThreadService, pageSize int) *FeedService {
	if pageSize <= 0 {
		pageSize = DEFAULT_PAGE_SIZE
	}
	return &FeedService{ledger: ledger, threads: threads, pageSize: pageSize}
}

// escapeLike экранирует спецсимволы LIKE; в запросе используется ESCAPE '\'
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// candidates возвращает фильтр выборки для режима ленты
func (fs *FeedService) candidates(q FeedQuery) (func(*gorm.DB) *gorm.DB, bool, error) {
	switch q.Mode {
	case FeedGlobal:
		return func(tx *gorm.DB) *gorm.DB {
			return tx.Where("p.reply_to_id IS NULL")
		}, true, nil

	case FeedFollowing:
		if q.ViewerID == "" {
			return nil, false, ErrUnauthenticated
		}
		return func(tx *gorm.DB) *gorm.DB {
			return tx.Where("p.reply_to_id IS NULL AND (p.user_id = ? OR p.user_id IN (SELECT f.followed_id FROM follows f WHERE f.follower_id = ?))",
				q.ViewerID, q.ViewerID)
		}, true, nil

	case FeedAuthor:
		if q.TargetID == "" {
			return nil, false, newError(KindInvalidArgument, "author id is required")
		}
		return func(tx *gorm.DB) *gorm.DB {
			return tx.Where("p.user_id = ?", q.TargetID)
		}, true, nil

	case FeedLiked:
		target := q.TargetID
		if target == "" {
			target = q.ViewerID
		}
		if target == "" {
			return nil, false, ErrUnauthenticated
		}
		return func(tx *gorm.DB) *gorm.DB {
			return tx.Where("p.id IN (SELECT l.post_id FROM likes l WHERE l.user_id = ?)", target)
		}, false, nil

	case FeedSearch:
		if q.Query == "" {
			return nil, false, newError(KindInvalidArgument, "search query must not be empty")
		}
		// регистр обеих сторон сводит БД
		pattern := "%" + escapeLike(q.Query) + "%"
		return func(tx *gorm.DB) *gorm.DB {
			return tx.Where(`LOWER(p.content) LIKE LOWER(?) ESCAPE '\'`, pattern)
		}, false, nil
	}
	return nil, false, newError(KindInvalidArgument, "unknown feed mode")
}

// ListFeed собирает страницу ленты: фильтр по режиму, порядок от новых к старым,
// разметка лайками и, для режимов с тредами, ответы к корневым постам.
func (fs *FeedService) ListFeed(ctx context.Context, q FeedQuery) (*models.FeedPage, error) {
	filter, threaded, err := fs.candidates(q)
	if err != nil {
		return nil, err
	}

	page := q.Page
	if page <= 0 {
		page = 1
	}
	limit := int64(fs.pageSize)

	var total int64
	err = db.GetReadOnlyDB(ctx).Table("posts p").Scopes(filter).Count(&total).Error
	if err != nil {
		return nil, storeError("count feed", err)
	}

	totalPages := (total + limit - 1) / limit
	result := &models.FeedPage{
		Items:      []*models.AnnotatedPost{},
		Page:       page,
		TotalPages: int(totalPages),
		Total:      total,
	}
	// номер страницы проверяется до умножения, (page-1)*limit может переполниться
	if int64(page-1) >= totalPages {
		return result, nil
	}
	offset := int(int64(page-1) * limit)

	var items []*models.AnnotatedPost
	err = annotatedPosts(db.GetReadOnlyDB(ctx)).
		Scopes(filter).
		Order("p.created_at DESC, p.id DESC").
		Limit(int(limit)).
		Offset(offset).
		Scan(&items).Error
	if err != nil {
		return nil, storeError("list feed", err)
	}

	if threaded {
		err = fs.threads.Thread(ctx, q.ViewerID, items)
	} else {
		err = fs.ledger.Annotate(ctx, q.ViewerID, items)
	}
	if err != nil {
		return nil, err
	}
	if items != nil {
		result.Items = items
	}
	return result, nil
}

// SearchPosts - поиск по подстроке без учета регистра, постранично
func (fs *FeedService) SearchPosts(ctx context.Context, query, viewerID string, page int) (*models.FeedPage, error) {
	return fs.ListFeed(ctx, FeedQuery{Mode: FeedSearch, Query: query, ViewerID: viewerID, Page: page})
}
