package repository

import (
	"context"
	"errors"

	"vexillum/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByParent(ctx context.Context, parent models.CommentParent) ([]*models.Comment, error)
	Update(ctx context.Context, comment *models.Comment) error
	Delete(ctx context.Context, id uint) error
	Reparent(ctx context.Context, from, to models.CommentParent) (int64, error)
	DeleteByParent(ctx context.Context, parent models.CommentParent) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error; err != nil {
		if errors.Is(err, models.ErrInvalidCommentParent) {
			return models.NewValidationError(err.Error())
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Preload("User").First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Comment", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &comment, nil
}

// ListByParent returns the comments of one design or post, oldest first.
func (r *commentRepository) ListByParent(ctx context.Context, parent models.CommentParent) ([]*models.Comment, error) {
	if !parent.Valid() {
		return nil, models.NewValidationError(models.ErrInvalidCommentParent.Error())
	}
	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Preload("User").
		Where(parent.Column()+" = ?", parent.ID()).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

func (r *commentRepository) Update(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(comment).Error; err != nil {
		if errors.Is(err, models.ErrInvalidCommentParent) {
			return models.NewValidationError(err.Error())
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *commentRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Comment{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Comment", id)
	}
	return nil
}

// Reparent moves every comment of from onto to in a single statement and
// returns how many moved.
func (r *commentRepository) Reparent(ctx context.Context, from, to models.CommentParent) (int64, error) {
	if !from.Valid() || !to.Valid() {
		return 0, models.NewValidationError(models.ErrInvalidCommentParent.Error())
	}
	values := map[string]interface{}{
		"design_id": gorm.Expr("NULL"),
		"post_id":   gorm.Expr("NULL"),
	}
	values[to.Column()] = to.ID()

	res := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where(from.Column()+" = ?", from.ID()).
		UpdateColumns(values)
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}

func (r *commentRepository) DeleteByParent(ctx context.Context, parent models.CommentParent) error {
	if !parent.Valid() {
		return models.NewValidationError(models.ErrInvalidCommentParent.Error())
	}
	if err := r.db.WithContext(ctx).
		Where(parent.Column()+" = ?", parent.ID()).
		Delete(&models.Comment{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
