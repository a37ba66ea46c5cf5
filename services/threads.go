package services

import (
	"context"

	"github.com/jdamiba/twitter-clone/db"
	"github.com/jdamiba/twitter-clone/models"
)

// ThreadService собирает ответы первого уровня к корневым постам.
// Ответы на ответы в дерево не попадают.
type ThreadService struct {
	ledger *LedgerService
}

func NewThreadService(ledger *LedgerService) *ThreadService {
	return &ThreadService{ledger: ledger}
}

// AttachReplies одним запросом загружает ответы к корневым постам из items
// и раскладывает их по родителям, от старых к новым. Не корневые посты
// пропускаются, корневые без ответов получают пустой список.
func (ts *ThreadService) AttachReplies(ctx context.Context, items []*models.AnnotatedPost) error {
	roots := make(map[int64]*models.AnnotatedPost)
	rootIDs := make([]int64, 0, len(items))
	for _, p := range items {
		if !p.IsRoot() {
			continue
		}
		p.Replies = []*models.AnnotatedPost{}
		roots[p.ID] = p
		rootIDs = append(rootIDs, p.ID)
	}
	if len(rootIDs) == 0 {
		return nil
	}

	var replies []*models.AnnotatedPost
	err := annotatedPosts(db.GetReadOnlyDB(ctx)).
		Where("p.reply_to_id IN ?", rootIDs).
		Order("p.created_at ASC, p.id ASC").
		Scan(&replies).Error
	if err != nil {
		return storeError("load replies", err)
	}

	for _, r := range replies {
		if parent, ok := roots[*r.ReplyToID]; ok {
			parent.Replies = append(parent.Replies, r)
		}
	}
	return nil
}

// Thread прикрепляет ответы и размечает лайками и корни, и ответы
func (ts *ThreadService) Thread(ctx context.Context, viewerID string, items []*models.AnnotatedPost) error {
	if err := ts.AttachReplies(ctx, items); err != nil {
		return err
	}
	return ts.ledger.Annotate(ctx, viewerID, items)
}
