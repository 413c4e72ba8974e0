package service

import (
	"context"
	"strings"

	"vexillum/internal/models"
	"vexillum/internal/observability"
	"vexillum/internal/repository"
	"vexillum/internal/taxonomy"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultPageSize  = 20
	TopTagsLimit     = 5
	maxTitleLen      = 200
	maxDescLen       = 10000
	maxHashtagLen    = 500
	userDesignsLimit = 100
)

// DesignService runs design submission, listing and the tag index.
type DesignService struct {
	designs  repository.DesignRepository
	comments repository.CommentRepository
	ratings  *RatingService
	images   *ImageService
	feed     FeedPublisher
	pageSize int
}

// SubmitDesignInput is a new design as received from the submission form.
type SubmitDesignInput struct {
	Title       string
	Description string
	Hashtags    string
	Image       *UploadImageInput
}

// UpdateDesignInput carries the fields to change; nil means unchanged.
type UpdateDesignInput struct {
	Title       *string
	Description *string
	Hashtags    *string
	Image       *UploadImageInput
	RemoveImage bool
}

// ListDesignsInput is the raw listing query. Unknown sort and rating values
// are ignored.
type ListDesignsInput struct {
	Search string
	Sort   string
	Rating string
	Page   int
}

// DesignDetail is a design with its discussion and rating aggregate.
type DesignDetail struct {
	Design   *models.Design       `json:"design"`
	Comments []*models.Comment    `json:"comments"`
	Rating   models.RatingSummary `json:"rating"`
}

func NewDesignService(
	designs repository.DesignRepository,
	comments repository.CommentRepository,
	ratings *RatingService,
	images *ImageService,
	feed FeedPublisher,
	pageSize int,
) *DesignService {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &DesignService{
		designs:  designs,
		comments: comments,
		ratings:  ratings,
		images:   images,
		feed:     feed,
		pageSize: pageSize,
	}
}

// Submit stores the image and creates an approved design owned by actor.
func (s *DesignService) Submit(ctx context.Context, actor models.Actor, in SubmitDesignInput) (*models.Design, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if err := validateDesignFields(title, in.Description, in.Hashtags); err != nil {
		return nil, err
	}
	if in.Image == nil {
		return nil, models.NewValidationError("Image is required")
	}

	stored, err := s.images.Save(ctx, *in.Image)
	if err != nil {
		return nil, err
	}

	design := &models.Design{
		PublicID:     uuid.NewString(),
		Title:        title,
		Description:  strings.TrimSpace(in.Description),
		ImageRef:     stored.Ref,
		ThumbnailRef: stored.ThumbnailRef,
		Hashtags:     models.NormalizeHashtags(in.Hashtags),
		Approved:     true,
		UserID:       actor.UserID,
	}
	if err := s.designs.Create(ctx, design); err != nil {
		s.images.Delete(ctx, stored.Ref, stored.ThumbnailRef)
		return nil, err
	}
	observability.ContentCreated.WithLabelValues("design").Inc()

	created, err := s.designs.GetByID(ctx, design.ID)
	if err != nil {
		return nil, err
	}
	s.decorate(created)
	publish(ctx, s.feed, EventDesignCreated, created)
	return created, nil
}

// Get loads a design by public id together with its comments and the
// rating summary as seen by viewer.
func (s *DesignService) Get(ctx context.Context, viewer models.Actor, publicID string) (*DesignDetail, error) {
	design, err := s.designs.GetByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByParent(ctx, models.DesignParent(design.ID))
	if err != nil {
		return nil, err
	}
	summary, err := s.ratings.Summary(ctx, design.ID, viewer.UserID)
	if err != nil {
		return nil, err
	}
	design.MeanRating = summary.Mean
	design.RatingCount = summary.Count
	s.decorate(design)

	if comments == nil {
		comments = []*models.Comment{}
	}
	return &DesignDetail{Design: design, Comments: comments, Rating: summary}, nil
}

// List runs the filter/sort engine and returns one page.
func (s *DesignService) List(ctx context.Context, in ListDesignsInput) (models.Page[*models.Design], error) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	q := models.DesignQuery{
		Search:   strings.TrimSpace(in.Search),
		Sort:     models.ParseDesignSort(in.Sort),
		Bucket:   models.ParseRatingBucket(in.Rating),
		Page:     page,
		PageSize: s.pageSize,
	}

	ctx, span := observability.StartSpan(ctx, "service", "DesignService.List",
		attribute.String("sort", string(q.Sort)),
		attribute.Int("page", q.Page),
	)
	designs, total, err := s.designs.List(ctx, q)
	observability.EndSpan(span, err)
	if err != nil {
		return models.Page[*models.Design]{}, err
	}

	for _, d := range designs {
		if d.MeanRating != nil {
			rounded := taxonomy.RoundDisplay(*d.MeanRating)
			d.MeanRating = &rounded
		}
		s.decorate(d)
	}
	return models.NewPage(designs, q.Page, q.PageSize, total), nil
}

// ListByUser returns a user's designs, newest first.
func (s *DesignService) ListByUser(ctx context.Context, userID uint) ([]*models.Design, error) {
	designs, err := s.designs.ListByUser(ctx, userID, userDesignsLimit, 0)
	if err != nil {
		return nil, err
	}
	for _, d := range designs {
		s.decorate(d)
	}
	return designs, nil
}

// Update applies in to the design after the ownership check. A replaced
// image is removed from storage once the row is saved.
func (s *DesignService) Update(ctx context.Context, actor models.Actor, publicID string, in UpdateDesignInput) (*models.Design, error) {
	design, err := s.designs.GetByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, design.UserID, "design"); err != nil {
		return nil, err
	}
	if in.RemoveImage && in.Image == nil {
		return nil, models.NewValidationError("A design must keep an image; upload a replacement instead")
	}

	// Only submitted fields are checked: a design converted from a long
	// post may carry a description past maxDescLen.
	if in.Title != nil {
		design.Title = strings.TrimSpace(*in.Title)
		if err := validateDesignTitle(design.Title); err != nil {
			return nil, err
		}
	}
	if in.Description != nil {
		design.Description = strings.TrimSpace(*in.Description)
		if err := validateDesignDescription(design.Description); err != nil {
			return nil, err
		}
	}
	if in.Hashtags != nil {
		design.Hashtags = models.NormalizeHashtags(*in.Hashtags)
		if err := validateDesignHashtags(design.HashtagString()); err != nil {
			return nil, err
		}
	}

	var stale []string
	if in.Image != nil {
		stored, err := s.images.Save(ctx, *in.Image)
		if err != nil {
			return nil, err
		}
		stale = []string{design.ImageRef, design.ThumbnailRef}
		design.ImageRef = stored.Ref
		design.ThumbnailRef = stored.ThumbnailRef
	}

	if err := s.designs.Update(ctx, design); err != nil {
		if in.Image != nil {
			s.images.Delete(ctx, design.ImageRef, design.ThumbnailRef)
		}
		return nil, err
	}
	s.images.Delete(ctx, stale...)
	s.decorate(design)
	return design, nil
}

// Delete removes the design, its comments and ratings, then its image.
func (s *DesignService) Delete(ctx context.Context, actor models.Actor, publicID string) error {
	design, err := s.designs.GetByPublicID(ctx, publicID)
	if err != nil {
		return err
	}
	if err := authorize(actor, design.UserID, "design"); err != nil {
		return err
	}
	if err := s.designs.Delete(ctx, design.ID); err != nil {
		return err
	}
	observability.ContentDeleted.WithLabelValues("design").Inc()
	s.images.Delete(ctx, design.ImageRef, design.ThumbnailRef)
	return nil
}

// TopTags returns the n most used hashtags across approved designs.
func (s *DesignService) TopTags(ctx context.Context, n int) ([]taxonomy.TagCount, error) {
	corpus, err := s.designs.ApprovedHashtags(ctx)
	if err != nil {
		return nil, err
	}
	return taxonomy.TopTags(corpus, n), nil
}

// AllTags returns every hashtag with its count, most used first.
func (s *DesignService) AllTags(ctx context.Context) ([]taxonomy.TagCount, error) {
	corpus, err := s.designs.ApprovedHashtags(ctx)
	if err != nil {
		return nil, err
	}
	return taxonomy.CountTags(corpus), nil
}

// UniqueTags returns the alphabetical set of hashtags.
func (s *DesignService) UniqueTags(ctx context.Context) ([]string, error) {
	corpus, err := s.designs.ApprovedHashtags(ctx)
	if err != nil {
		return nil, err
	}
	return taxonomy.UniqueTags(corpus), nil
}

func (s *DesignService) decorate(d *models.Design) {
	d.ImageURL = s.images.URL(d.ImageRef)
	d.ThumbnailURL = s.images.URL(d.ThumbnailRef)
}

func validateDesignFields(title, description, hashtags string) error {
	if err := validateDesignTitle(title); err != nil {
		return err
	}
	if err := validateDesignDescription(description); err != nil {
		return err
	}
	return validateDesignHashtags(hashtags)
}

func validateDesignTitle(title string) error {
	if title == "" {
		return models.NewValidationError("Title is required")
	}
	if len(title) > maxTitleLen {
		return models.NewValidationError("Title too long (max 200 characters)")
	}
	return nil
}

func validateDesignDescription(description string) error {
	if len(description) > maxDescLen {
		return models.NewValidationError("Description too long (max 10000 characters)")
	}
	return nil
}

func validateDesignHashtags(hashtags string) error {
	if len(hashtags) > maxHashtagLen {
		return models.NewValidationError("Hashtags too long (max 500 characters)")
	}
	return nil
}
