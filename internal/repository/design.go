package repository

import (
	"context"
	"errors"
	"strings"

	"vexillum/internal/models"
	"vexillum/internal/taxonomy"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DesignRepository defines persistence operations for designs.
type DesignRepository interface {
	Create(ctx context.Context, design *models.Design) error
	GetByID(ctx context.Context, id uint) (*models.Design, error)
	GetByPublicID(ctx context.Context, publicID string) (*models.Design, error)
	Update(ctx context.Context, design *models.Design) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, q models.DesignQuery) ([]*models.Design, int64, error)
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Design, error)
	ApprovedHashtags(ctx context.Context) ([]string, error)
}

type designRepository struct {
	db *gorm.DB
}

// NewDesignRepository returns a GORM-backed DesignRepository.
func NewDesignRepository(db *gorm.DB) DesignRepository {
	return &designRepository{db: db}
}

const (
	meanExpr  = "AVG(CAST(ratings.value AS FLOAT))"
	countExpr = "COUNT(ratings.id)"
)

func (r *designRepository) Create(ctx context.Context, design *models.Design) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(design).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("Design already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *designRepository) GetByID(ctx context.Context, id uint) (*models.Design, error) {
	var design models.Design
	if err := r.db.WithContext(ctx).Preload("User").First(&design, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Design", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &design, nil
}

func (r *designRepository) GetByPublicID(ctx context.Context, publicID string) (*models.Design, error) {
	var design models.Design
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("public_id = ?", publicID).
		First(&design).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Design", publicID)
		}
		return nil, models.NewInternalError(err)
	}
	return &design, nil
}

func (r *designRepository) Update(ctx context.Context, design *models.Design) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(design).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Delete removes the design together with its comments and ratings.
func (r *designRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("design_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := tx.Where("design_id = ?", id).Delete(&models.Rating{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		res := tx.Delete(&models.Design{}, id)
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Design", id)
		}
		return nil
	})
}

// List runs the filter/sort engine over approved designs and returns one
// page plus the number of matching designs.
func (r *designRepository) List(ctx context.Context, q models.DesignQuery) ([]*models.Design, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Table("(?) AS filtered", r.filtered(ctx, q)).
		Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var designs []*models.Design
	if q.PastEnd(total) {
		return designs, total, nil
	}

	err := applyDesignSort(r.filtered(ctx, q), q.Sort).
		Preload("User").
		Limit(q.PageSize).
		Offset(q.Offset()).
		Find(&designs).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return designs, total, nil
}

// filtered builds a fresh query selecting approved designs with their rating
// aggregates, narrowed by search text and rating bucket.
func (r *designRepository) filtered(ctx context.Context, q models.DesignQuery) *gorm.DB {
	db := r.db.WithContext(ctx).
		Model(&models.Design{}).
		Select("designs.*, "+meanExpr+" AS mean_rating, "+countExpr+" AS rating_count").
		Joins("LEFT JOIN ratings ON ratings.design_id = designs.id").
		Where("designs.approved = ?", true).
		Group("designs.id")

	if search := strings.TrimSpace(q.Search); search != "" {
		like := containsPattern(search)
		db = db.Where(
			matchAny(r.db, "designs.title", "designs.description", "COALESCE(designs.hashtags, '')"),
			like, like, like,
		)
	}

	if b := q.Bucket; b != nil {
		if b.Unrated {
			db = db.Having(countExpr + " = 0")
		} else {
			lo, hi := taxonomy.BucketBounds(b.Value)
			db = db.Having(meanExpr+" >= ? AND "+meanExpr+" < ?", lo, hi)
		}
	}
	return db
}

// applyDesignSort appends the ORDER BY for the listing. Unrated designs
// have no mean and sort after every rated one under "top".
func applyDesignSort(db *gorm.DB, sort models.DesignSort) *gorm.DB {
	switch sort {
	case models.SortTop:
		return db.Order("CASE WHEN " + countExpr + " = 0 THEN 1 ELSE 0 END").
			Order(meanExpr + " DESC").
			Order("designs.created_at DESC, designs.id DESC")
	default:
		return db.Order("designs.created_at DESC, designs.id DESC")
	}
}

func (r *designRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Design, error) {
	var designs []*models.Design
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&designs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return designs, nil
}

// ApprovedHashtags returns the non-empty hashtag strings of approved designs
// in creation order.
func (r *designRepository) ApprovedHashtags(ctx context.Context) ([]string, error) {
	var tags []string
	err := r.db.WithContext(ctx).
		Model(&models.Design{}).
		Where("approved = ? AND hashtags IS NOT NULL AND hashtags <> ''", true).
		Order("id ASC").
		Pluck("hashtags", &tags).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return tags, nil
}
