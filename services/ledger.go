package services

import (
	"context"
	"log"

	"github.com/jdamiba/twitter-clone/config"
	"github.com/jdamiba/twitter-clone/db"
	"github.com/jdamiba/twitter-clone/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// maxFlipAttempts ограничивает число повторов delete/insert при гонке за один ключ
const maxFlipAttempts = 5

type LikeResult struct {
	Liked      bool  `json:"liked"`
	LikesCount int64 `json:"likes_count"`
}

type FollowResult struct {
	Following bool `json:"following"`
}

// LedgerService ведет отношения-переключатели (лайк, подписка).
// Каждый ключ сериализуется уникальным индексом таблицы, так что
// переключения разных ключей друг друга не блокируют.
type LedgerService struct {
	cache  *LikeCountCache
	events Publisher
}

func NewLedgerService(cache *LikeCountCache, events Publisher) *LedgerService {
	if events == nil {
		events = NopPublisher{}
	}
	return &LedgerService{cache: cache, events: events}
}

// flipRelation удаляет строку key, а если ее не было - вставляет.
// Возвращает итоговое состояние: true - отношение появилось.
func flipRelation[T any](tx *gorm.DB, key *T) (bool, error) {
	for attempt := 0; attempt < maxFlipAttempts; attempt++ {
		res := tx.Delete(key)
		if res.Error != nil {
			return false, res.Error
		}
		if res.RowsAffected > 0 {
			return false, nil
		}

		res = tx.Clauses(clause.OnConflict{DoNothing: true}).Create(key)
		if res.Error != nil {
			return false, res.Error
		}
		if res.RowsAffected > 0 {
			return true, nil
		}
		// конкурент вставил строку между нашими DELETE и INSERT, пробуем снова
	}
	return false, newError(KindUnavailable, "too much contention on toggle, retry later")
}

func requireUser(tx *gorm.DB, userID string) error {
	var user models.User
	err := tx.Select("id").Where("id = ?", userID).Take(&user).Error
	if isRecordNotFound(err) {
		return newError(KindNotFound, "user not found")
	}
	return err
}

// ToggleLike ставит или снимает лайк зрителя и возвращает итоговое состояние
// вместе со счетчиком, посчитанным после изменения.
func (s *LedgerService) ToggleLike(ctx context.Context, viewerID string, postID int64) (*LikeResult, error) {
	if viewerID == "" {
		return nil, ErrUnauthenticated
	}

	var result LikeResult
	err := db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
			Select("id", "user_id").
			Where("id = ?", postID).
			Take(&post).Error
		if isRecordNotFound(err) {
			return newError(KindNotFound, "post not found")
		}
		if err != nil {
			return err
		}
		if err := requireUser(tx, viewerID); err != nil {
			return err
		}
		if post.UserID == viewerID {
			return newError(KindInvalidOperation, "cannot like own content")
		}

		liked, err := flipRelation(tx, &models.Like{UserID: viewerID, PostID: postID})
		if err != nil {
			return err
		}
		result.Liked = liked
		return tx.Model(&models.Like{}).Where("post_id = ?", postID).Count(&result.LikesCount).Error
	})
	if err != nil {
		return nil, storeError("toggle like", err)
	}

	s.cache.Invalidate(ctx, postID)
	recordToggle("like", result.Liked)
	ev := newActivityEvent(EventLikeToggled, viewerID)
	ev.PostID = postID
	ev.Active = &result.Liked
	emit(ctx, s.events, ev)
	if config.DebugEnabled() {
		log.Printf("DEBUG: like toggled viewer=%s post=%d liked=%t count=%d", viewerID, postID, result.Liked, result.LikesCount)
	}
	return &result, nil
}

// ToggleFollow подписывает или отписывает followerID от followedID
func (s *LedgerService) ToggleFollow(ctx context.Context, followerID, followedID string) (*FollowResult, error) {
	if followerID == "" {
		return nil, ErrUnauthenticated
	}
	if followerID == followedID {
		return nil, newError(KindInvalidOperation, "cannot follow yourself")
	}

	var result FollowResult
	err := db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		var followed models.User
		err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
			Select("id").
			Where("id = ?", followedID).
			Take(&followed).Error
		if isRecordNotFound(err) {
			return newError(KindNotFound, "user not found")
		}
		if err != nil {
			return err
		}
		if err := requireUser(tx, followerID); err != nil {
			return err
		}

		following, err := flipRelation(tx, &models.Follow{FollowerID: followerID, FollowedID: followedID})
		result.Following = following
		return err
	})
	if err != nil {
		return nil, storeError("toggle follow", err)
	}

	recordToggle("follow", result.Following)
	ev := newActivityEvent(EventFollowToggled, followerID)
	ev.TargetUser = followedID
	ev.Active = &result.Following
	emit(ctx, s.events, ev)
	return &result, nil
}

// CountLikes возвращает число лайков поста
func (s *LedgerService) CountLikes(ctx context.Context, postID int64) (int64, error) {
	counts, err := s.LikeCounts(ctx, []int64{postID})
	if err != nil {
		return 0, err
	}
	return counts[postID], nil
}

// LikeCounts читает счетчики сначала из кеша, промахи добирает одним запросом
// к БД и записывает обратно. Посты без лайков получают 0.
func (s *LedgerService) LikeCounts(ctx context.Context, postIDs []int64) (map[int64]int64, error) {
	counts, err := s.cache.GetMany(ctx, postIDs)
	if err != nil {
		log.Printf("ERROR: like count cache read failed: %v", err)
	}

	missing := make([]int64, 0, len(postIDs))
	for _, id := range postIDs {
		if _, ok := counts[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return counts, nil
	}

	var rows []struct {
		PostID int64
		Cnt    int64
	}
	err = db.GetReadOnlyDB(ctx).Model(&models.Like{}).
		Select("post_id, COUNT(*) AS cnt").
		Where("post_id IN ?", missing).
		Group("post_id").
		Scan(&rows).Error
	if err != nil {
		return nil, storeError("count likes", err)
	}

	fetched := make(map[int64]int64, len(missing))
	for _, id := range missing {
		fetched[id] = 0
	}
	for _, r := range rows {
		fetched[r.PostID] = r.Cnt
	}
	if err := s.cache.SetMany(ctx, fetched); err != nil {
		log.Printf("ERROR: like count cache backfill failed: %v", err)
	}
	for id, n := range fetched {
		counts[id] = n
	}
	return counts, nil
}

// LikedSet возвращает множество постов из postIDs, лайкнутых зрителем.
// Для анонимного зрителя множество пустое.
func (s *LedgerService) LikedSet(ctx context.Context, viewerID string, postIDs []int64) (map[int64]bool, error) {
	liked := make(map[int64]bool)
	if viewerID == "" || len(postIDs) == 0 {
		return liked, nil
	}
	var ids []int64
	err := db.GetReadOnlyDB(ctx).Model(&models.Like{}).
		Where("user_id = ? AND post_id IN ?", viewerID, postIDs).
		Pluck("post_id", &ids).Error
	if err != nil {
		return nil, storeError("liked set", err)
	}
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}

func (s *LedgerService) IsLiked(ctx context.Context, viewerID string, postID int64) (bool, error) {
	liked, err := s.LikedSet(ctx, viewerID, []int64{postID})
	if err != nil {
		return false, err
	}
	return liked[postID], nil
}

func (s *LedgerService) IsFollowing(ctx context.Context, followerID, followedID string) (bool, error) {
	if followerID == "" || followedID == "" {
		return false, nil
	}
	var n int64
	err := db.GetReadOnlyDB(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Count(&n).Error
	if err != nil {
		return false, storeError("is following", err)
	}
	return n > 0, nil
}

// Annotate заполняет LikesCount и IsLiked для постов (включая их ответы)
func (s *LedgerService) Annotate(ctx context.Context, viewerID string, posts []*models.AnnotatedPost) error {
	ids := make([]int64, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
		for _, r := range p.Replies {
			ids = append(ids, r.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	counts, err := s.LikeCounts(ctx, ids)
	if err != nil {
		return err
	}
	liked, err := s.LikedSet(ctx, viewerID, ids)
	if err != nil {
		return err
	}
	apply := func(p *models.AnnotatedPost) {
		p.LikesCount = counts[p.ID]
		p.IsLiked = liked[p.ID]
	}
	for _, p := range posts {
		apply(p)
		for _, r := range p.Replies {
			apply(r)
		}
	}
	return nil
}
