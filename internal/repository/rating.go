package repository

import (
	"context"
	"errors"

	"vexillum/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RatingRepository defines persistence operations for ratings.
type RatingRepository interface {
	Upsert(ctx context.Context, rating *models.Rating) error
	Stats(ctx context.Context, designID uint) (mean *float64, count int64, err error)
	GetUserRating(ctx context.Context, userID, designID uint) (*models.Rating, error)
	DeleteByDesign(ctx context.Context, designID uint) error
}

type ratingRepository struct {
	db *gorm.DB
}

// NewRatingRepository returns a GORM-backed RatingRepository.
func NewRatingRepository(db *gorm.DB) RatingRepository {
	return &ratingRepository{db: db}
}

// Upsert inserts the rating or, when the user already rated the design,
// overwrites the value in the same statement.
func (r *ratingRepository) Upsert(ctx context.Context, rating *models.Rating) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "design_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(rating).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *ratingRepository) Stats(ctx context.Context, designID uint) (*float64, int64, error) {
	var row struct {
		Mean  *float64
		Count int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Rating{}).
		Select("AVG(CAST(value AS FLOAT)) AS mean, COUNT(*) AS count").
		Where("design_id = ?", designID).
		Scan(&row).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return row.Mean, row.Count, nil
}

// GetUserRating returns nil, nil when the user has not rated the design.
func (r *ratingRepository) GetUserRating(ctx context.Context, userID, designID uint) (*models.Rating, error) {
	var rating models.Rating
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND design_id = ?", userID, designID).
		First(&rating).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &rating, nil
}

func (r *ratingRepository) DeleteByDesign(ctx context.Context, designID uint) error {
	if err := r.db.WithContext(ctx).Where("design_id = ?", designID).Delete(&models.Rating{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
