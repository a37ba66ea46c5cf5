package services

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/jdamiba/twitter-clone/db"
	"github.com/jdamiba/twitter-clone/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserInput - данные пользователя от провайдера идентификации
type UserInput struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

type UserService struct {
	ledger *LedgerService
}

func NewUserService(ledger *LedgerService) *UserService {
	return &UserService{ledger: ledger}
}

// UpsertUser заводит пользователя при первом событии провайдера, а при
// повторных обновляет только отображаемое имя. Username неизменяем.
func (us *UserService) UpsertUser(ctx context.Context, in UserInput) (*models.User, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Username = strings.TrimSpace(in.Username)
	if in.ID == "" || in.Username == "" {
		return nil, newError(KindInvalidArgument, "id and username are required")
	}
	if in.DisplayName == "" {
		in.DisplayName = in.Username
	}

	var user models.User
	created := false
	err := db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", in.ID).Take(&user).Error
		if err == nil {
			if user.DisplayName == in.DisplayName {
				return nil
			}
			user.DisplayName = in.DisplayName
			user.UpdatedAt = time.Now().UTC()
			return tx.Model(&user).Updates(map[string]interface{}{
				"display_name": user.DisplayName,
				"updated_at":   user.UpdatedAt,
			}).Error
		}
		if !isRecordNotFound(err) {
			return err
		}

		var taken int64
		if err := tx.Model(&models.User{}).Where("username = ?", in.Username).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return newError(KindInvalidOperation, "username already taken")
		}
		now := time.Now().UTC()
		user = models.User{
			ID:          in.ID,
			Username:    in.Username,
			DisplayName: in.DisplayName,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		created = true
		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, storeError("upsert user", err)
	}
	if created {
		log.Printf("User %s (%s) provisioned", user.ID, user.Username)
	}
	return &user, nil
}

// GetUser возвращает профиль со счетчиками подписок и признаком подписки зрителя
func (us *UserService) GetUser(ctx context.Context, userID, viewerID string) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := db.GetReadOnlyDB(ctx).Where("id = ?", userID).Take(&profile.User).Error
	if isRecordNotFound(err) {
		return nil, newError(KindNotFound, "user not found")
	}
	if err != nil {
		return nil, storeError("get user", err)
	}

	if err := db.GetReadOnlyDB(ctx).Model(&models.Follow{}).Where("followed_id = ?", userID).Count(&profile.FollowersCount).Error; err != nil {
		return nil, storeError("count followers", err)
	}
	if err := db.GetReadOnlyDB(ctx).Model(&models.Follow{}).Where("follower_id = ?", userID).Count(&profile.FollowingCount).Error; err != nil {
		return nil, storeError("count following", err)
	}
	if viewerID != userID {
		profile.IsFollowing, err = us.ledger.IsFollowing(ctx, viewerID, userID)
		if err != nil {
			return nil, err
		}
	}
	return &profile, nil
}

// ListFollowing возвращает id пользователей, на которых подписан viewerID
func (us *UserService) ListFollowing(ctx context.Context, viewerID string) ([]string, error) {
	if viewerID == "" {
		return nil, ErrUnauthenticated
	}
	ids := []string{}
	err := db.GetReadOnlyDB(ctx).Model(&models.Follow{}).
		Where("follower_id = ?", viewerID).
		Order("created_at DESC").
		Pluck("followed_id", &ids).Error
	if err != nil {
		return nil, storeError("list following", err)
	}
	return ids, nil
}
