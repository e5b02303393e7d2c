package postgres

import (
	"context"
	"errors"

	"github.com/dom/sleeplog/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type followRepository struct {
	db *gorm.DB
}

func NewFollowRepository(db *gorm.DB) *followRepository {
	return &followRepository{db: db}
}

func (r *followRepository) Exists(ctx context.Context, followerID, followedID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Follow{}).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Count(&count).Error
	return count > 0, err
}

func (r *followRepository) Create(ctx context.Context, followerID, followedID uuid.UUID) error {
	err := r.db.WithContext(ctx).Create(&domain.Follow{
		FollowerID: followerID,
		FollowedID: followedID,
	}).Error
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domain.ErrAlreadyFollowing
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return domain.ErrUserNotFound
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return domain.ErrCannotFollowSelf
	}
	return err
}

func (r *followRepository) Delete(ctx context.Context, followerID, followedID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Delete(&domain.Follow{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *followRepository) CountFollowing(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Follow{}).
		Where("follower_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (r *followRepository) CountFollowers(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Follow{}).
		Where("followed_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (r *followRepository) FollowingIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&domain.Follow{}).
		Where("follower_id = ?", userID).
		Order("created_at ASC").
		Pluck("followed_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *followRepository) FollowerIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&domain.Follow{}).
		Where("followed_id = ?", userID).
		Order("created_at ASC").
		Pluck("follower_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
