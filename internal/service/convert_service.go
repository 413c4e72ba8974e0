package service

import (
	"context"
	"strings"

	"vexillum/internal/models"
	"vexillum/internal/observability"
	"vexillum/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// ConversionMarker is the hashtag stamped on designs created from posts.
const ConversionMarker = "#Converted"

const (
	directionPostToDesign = "post_to_design"
	directionDesignToPost = "design_to_post"
)

// ConvertService moves content between the design gallery and the
// discussion board. Each conversion runs in one transaction.
type ConvertService struct {
	db     *gorm.DB
	images *ImageService
	feed   FeedPublisher
}

// ConversionEvent is published on the live feed after a conversion commits.
type ConversionEvent struct {
	Direction string `json:"direction"`
	PostID    uint   `json:"post_id"`
	DesignID  string `json:"design_id"`
}

func NewConvertService(db *gorm.DB, images *ImageService, feed FeedPublisher) *ConvertService {
	return &ConvertService{db: db, images: images, feed: feed}
}

// PostToDesign turns an image-bearing post into an approved design. The
// post's comments move to the design and the post row is deleted; the
// stored image now belongs to the design.
func (s *ConvertService) PostToDesign(ctx context.Context, actor models.Actor, postID uint) (design *models.Design, err error) {
	ctx, span := observability.StartSpan(ctx, "service", "ConvertService.PostToDesign",
		attribute.Int64("post_id", int64(postID)))
	defer func() {
		observability.Conversions.WithLabelValues(directionPostToDesign, conversionResult(err)).Inc()
		observability.EndSpan(span, err)
	}()

	if err := requireAdmin(actor, "post"); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		posts := repository.NewPostRepository(tx)
		designs := repository.NewDesignRepository(tx)
		comments := repository.NewCommentRepository(tx)

		post, err := posts.GetByID(ctx, postID)
		if err != nil {
			return err
		}
		if !post.HasImage() {
			return models.NewPreconditionFailedError("Only posts with an image can be converted to a design")
		}

		marker := ConversionMarker
		design = &models.Design{
			PublicID:     uuid.NewString(),
			Title:        post.Title,
			Description:  post.Content,
			ImageRef:     *post.ImageRef,
			ThumbnailRef: post.ThumbnailRef,
			Hashtags:     &marker,
			Approved:     true,
			UserID:       post.UserID,
			CreatedAt:    post.CreatedAt,
		}
		if err := designs.Create(ctx, design); err != nil {
			return err
		}
		if _, err := comments.Reparent(ctx, models.PostParent(post.ID), models.DesignParent(design.ID)); err != nil {
			return err
		}
		return posts.Delete(ctx, post.ID)
	})
	if err != nil {
		return nil, err
	}

	converted, err := repository.NewDesignRepository(s.db).GetByID(ctx, design.ID)
	if err != nil {
		return nil, err
	}
	converted.ImageURL = s.images.URL(converted.ImageRef)
	converted.ThumbnailURL = s.images.URL(converted.ThumbnailRef)
	publish(ctx, s.feed, EventContentConverted, ConversionEvent{
		Direction: directionPostToDesign,
		PostID:    postID,
		DesignID:  converted.PublicID,
	})
	return converted, nil
}

// DesignToPost turns a design into a discussion post. Hashtags are kept as
// a trailing paragraph of the content, comments move to the post, and the
// design's ratings are discarded with the design.
func (s *ConvertService) DesignToPost(ctx context.Context, actor models.Actor, publicID string) (post *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "service", "ConvertService.DesignToPost",
		attribute.String("design_id", publicID))
	defer func() {
		observability.Conversions.WithLabelValues(directionDesignToPost, conversionResult(err)).Inc()
		observability.EndSpan(span, err)
	}()

	if err := requireAdmin(actor, "design"); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		designs := repository.NewDesignRepository(tx)
		posts := repository.NewPostRepository(tx)
		comments := repository.NewCommentRepository(tx)
		ratings := repository.NewRatingRepository(tx)

		design, err := designs.GetByPublicID(ctx, publicID)
		if err != nil {
			return err
		}

		post = &models.Post{
			Title:        design.Title,
			Content:      postContentFromDesign(design),
			PostType:     models.PostTypeDiscussion,
			Subject:      models.DefaultSubject,
			ThumbnailRef: design.ThumbnailRef,
			UserID:       design.UserID,
			CreatedAt:    design.CreatedAt,
		}
		if design.ImageRef != "" {
			ref := design.ImageRef
			post.ImageRef = &ref
		}
		if err := posts.Create(ctx, post); err != nil {
			return err
		}
		if _, err := comments.Reparent(ctx, models.DesignParent(design.ID), models.PostParent(post.ID)); err != nil {
			return err
		}
		if err := ratings.DeleteByDesign(ctx, design.ID); err != nil {
			return err
		}
		return designs.Delete(ctx, design.ID)
	})
	if err != nil {
		return nil, err
	}

	converted, err := repository.NewPostRepository(s.db).GetByID(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	if converted.HasImage() {
		converted.ImageURL = s.images.URL(*converted.ImageRef)
	}
	converted.ThumbnailURL = s.images.URL(converted.ThumbnailRef)
	publish(ctx, s.feed, EventContentConverted, ConversionEvent{
		Direction: directionDesignToPost,
		PostID:    converted.ID,
		DesignID:  publicID,
	})
	return converted, nil
}

func postContentFromDesign(d *models.Design) string {
	paragraphs := make([]string, 0, 2)
	if desc := strings.TrimSpace(d.Description); desc != "" {
		paragraphs = append(paragraphs, desc)
	}
	if tags := strings.TrimSpace(d.HashtagString()); tags != "" {
		paragraphs = append(paragraphs, tags)
	}
	return strings.Join(paragraphs, "\n\n")
}

func conversionResult(err error) string {
	if err == nil {
		return "ok"
	}
	switch models.ErrorCode(err) {
	case models.CodePreconditionFailed:
		return "precondition_failed"
	case models.CodeForbidden, models.CodeUnauthorized:
		return "forbidden"
	case models.CodeNotFound:
		return "not_found"
	default:
		return "error"
	}
}
