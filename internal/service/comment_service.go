package service

import (
	"context"
	"strings"

	"vexillum/internal/models"
	"vexillum/internal/observability"
	"vexillum/internal/repository"
)

const maxCommentLen = 5000

type CommentService struct {
	commentRepo repository.CommentRepository
	designRepo  repository.DesignRepository
	postRepo    repository.PostRepository
	feed        FeedPublisher
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	designRepo repository.DesignRepository,
	postRepo repository.PostRepository,
	feed FeedPublisher,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		designRepo:  designRepo,
		postRepo:    postRepo,
		feed:        feed,
	}
}

// AddComment attaches a new comment by actor to parent, which must exist.
func (s *CommentService) AddComment(ctx context.Context, actor models.Actor, parent models.CommentParent, content string) (*models.Comment, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	content, err := validateCommentContent(content)
	if err != nil {
		return nil, err
	}
	if err := s.parentExists(ctx, parent); err != nil {
		return nil, err
	}

	comment, err := models.NewComment(parent, actor.UserID, content)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	observability.ContentCreated.WithLabelValues("comment").Inc()

	created, err := s.commentRepo.GetByID(ctx, comment.ID)
	if err != nil {
		return nil, err
	}
	publish(ctx, s.feed, EventCommentCreated, created)
	return created, nil
}

// AddDesignComment resolves a design public id and comments on it.
func (s *CommentService) AddDesignComment(ctx context.Context, actor models.Actor, publicID, content string) (*models.Comment, error) {
	design, err := s.designRepo.GetByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	return s.AddComment(ctx, actor, models.DesignParent(design.ID), content)
}

func (s *CommentService) ListComments(ctx context.Context, parent models.CommentParent) ([]*models.Comment, error) {
	if err := s.parentExists(ctx, parent); err != nil {
		return nil, err
	}
	return s.commentRepo.ListByParent(ctx, parent)
}

func (s *CommentService) UpdateComment(ctx context.Context, actor models.Actor, commentID uint, content string) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, comment.UserID, "comment"); err != nil {
		return nil, err
	}
	content, err = validateCommentContent(content)
	if err != nil {
		return nil, err
	}

	comment.Content = content
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *CommentService) DeleteComment(ctx context.Context, actor models.Actor, commentID uint) error {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if err := authorize(actor, comment.UserID, "comment"); err != nil {
		return err
	}
	if err := s.commentRepo.Delete(ctx, commentID); err != nil {
		return err
	}
	observability.ContentDeleted.WithLabelValues("comment").Inc()
	return nil
}

func (s *CommentService) parentExists(ctx context.Context, parent models.CommentParent) error {
	if !parent.Valid() {
		return models.NewValidationError(models.ErrInvalidCommentParent.Error())
	}
	var err error
	switch parent.Kind() {
	case models.ParentDesign:
		_, err = s.designRepo.GetByID(ctx, parent.ID())
	case models.ParentPost:
		_, err = s.postRepo.GetByID(ctx, parent.ID())
	}
	return err
}

func validateCommentContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", models.NewValidationError("Content is required")
	}
	if len(content) > maxCommentLen {
		return "", models.NewValidationError("Comment too long (max 5000 characters)")
	}
	return content, nil
}
