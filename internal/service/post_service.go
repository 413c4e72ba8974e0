package service

import (
	"context"
	"strings"

	"vexillum/internal/models"
	"vexillum/internal/observability"
	"vexillum/internal/repository"
)

const maxPostContentLen = 50000

type PostService struct {
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	images      *ImageService
	feed        FeedPublisher
	pageSize    int
}

type CreatePostInput struct {
	Title    string
	Content  string
	PostType string
	Subject  string
	Image    *UploadImageInput
}

type UpdatePostInput struct {
	Title       *string
	Content     *string
	Subject     *string
	PostType    *string
	Image       *UploadImageInput
	RemoveImage bool
}

type ListPostsInput struct {
	PostType string
	Subject  string
	Page     int
}

// PostDetail is a post with its comments, oldest first.
type PostDetail struct {
	Post     *models.Post      `json:"post"`
	Comments []*models.Comment `json:"comments"`
}

func NewPostService(
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
	images *ImageService,
	feed FeedPublisher,
	pageSize int,
) *PostService {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &PostService{
		postRepo:    postRepo,
		commentRepo: commentRepo,
		images:      images,
		feed:        feed,
		pageSize:    pageSize,
	}
}

// Subjects returns the suggested discussion subjects.
func (s *PostService) Subjects() []string {
	out := make([]string, len(models.Subjects))
	copy(out, models.Subjects)
	return out
}

func (s *PostService) CreatePost(ctx context.Context, actor models.Actor, in CreatePostInput) (*models.Post, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}

	postType := strings.ToLower(strings.TrimSpace(in.PostType))
	if postType == "" {
		postType = models.PostTypeDiscussion
	}
	if !models.IsValidPostType(postType) {
		return nil, models.NewValidationError("Invalid post_type")
	}
	if postType == models.PostTypeAnnouncement && !actor.IsAdmin {
		observability.GuardDenials.WithLabelValues("post").Inc()
		return nil, models.NewForbiddenError("Only admins can post announcements")
	}

	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)
	if err := validatePostFields(title, content); err != nil {
		return nil, err
	}

	subject := strings.TrimSpace(in.Subject)
	if subject == "" {
		subject = models.DefaultSubject
	}

	post := &models.Post{
		Title:    title,
		Content:  content,
		PostType: postType,
		Subject:  subject,
		UserID:   actor.UserID,
	}

	var stored *StoredImage
	if in.Image != nil {
		var err error
		stored, err = s.images.Save(ctx, *in.Image)
		if err != nil {
			return nil, err
		}
		post.ImageRef = &stored.Ref
		post.ThumbnailRef = stored.ThumbnailRef
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		if stored != nil {
			s.images.Delete(ctx, stored.Ref, stored.ThumbnailRef)
		}
		return nil, err
	}
	observability.ContentCreated.WithLabelValues("post").Inc()

	created, err := s.postRepo.GetByID(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	s.decorate(created)
	publish(ctx, s.feed, EventPostCreated, created)
	return created, nil
}

func (s *PostService) GetPost(ctx context.Context, id uint) (*PostDetail, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	comments, err := s.commentRepo.ListByParent(ctx, models.PostParent(post.ID))
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []*models.Comment{}
	}
	s.decorate(post)
	return &PostDetail{Post: post, Comments: comments}, nil
}

func (s *PostService) ListPosts(ctx context.Context, in ListPostsInput) (models.Page[*models.Post], error) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	postType := strings.ToLower(strings.TrimSpace(in.PostType))
	if !models.IsValidPostType(postType) {
		postType = ""
	}

	posts, total, err := s.postRepo.List(ctx, models.PostFilter{
		PostType: postType,
		Subject:  strings.TrimSpace(in.Subject),
		Page:     page,
		PageSize: s.pageSize,
	})
	if err != nil {
		return models.Page[*models.Post]{}, err
	}
	for _, p := range posts {
		s.decorate(p)
	}
	return models.NewPage(posts, page, s.pageSize, total), nil
}

func (s *PostService) UpdatePost(ctx context.Context, actor models.Actor, id uint, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, post.UserID, "post"); err != nil {
		return nil, err
	}

	if in.Title != nil {
		post.Title = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		post.Content = strings.TrimSpace(*in.Content)
	}
	if in.Subject != nil {
		post.Subject = strings.TrimSpace(*in.Subject)
		if post.Subject == "" {
			post.Subject = models.DefaultSubject
		}
	}
	if in.PostType != nil {
		postType := strings.ToLower(strings.TrimSpace(*in.PostType))
		if !models.IsValidPostType(postType) {
			return nil, models.NewValidationError("Invalid post_type")
		}
		if postType != post.PostType && !actor.IsAdmin {
			observability.GuardDenials.WithLabelValues("post").Inc()
			return nil, models.NewForbiddenError("Only admins can change the post type")
		}
		post.PostType = postType
	}
	if err := validatePostFields(post.Title, post.Content); err != nil {
		return nil, err
	}

	var stale []string
	if post.HasImage() && (in.Image != nil || in.RemoveImage) {
		stale = []string{*post.ImageRef, post.ThumbnailRef}
	}
	if in.Image != nil {
		stored, err := s.images.Save(ctx, *in.Image)
		if err != nil {
			return nil, err
		}
		post.ImageRef = &stored.Ref
		post.ThumbnailRef = stored.ThumbnailRef
	} else if in.RemoveImage {
		post.ImageRef = nil
		post.ThumbnailRef = ""
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		if in.Image != nil {
			s.images.Delete(ctx, *post.ImageRef, post.ThumbnailRef)
		}
		return nil, err
	}
	s.images.Delete(ctx, stale...)
	s.decorate(post)
	return post, nil
}

func (s *PostService) DeletePost(ctx context.Context, actor models.Actor, id uint) error {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := authorize(actor, post.UserID, "post"); err != nil {
		return err
	}
	if err := s.postRepo.Delete(ctx, id); err != nil {
		return err
	}
	observability.ContentDeleted.WithLabelValues("post").Inc()
	if post.HasImage() {
		s.images.Delete(ctx, *post.ImageRef, post.ThumbnailRef)
	}
	return nil
}

func (s *PostService) decorate(p *models.Post) {
	if p.HasImage() {
		p.ImageURL = s.images.URL(*p.ImageRef)
	}
	p.ThumbnailURL = s.images.URL(p.ThumbnailRef)
}

func validatePostFields(title, content string) error {
	if title == "" {
		return models.NewValidationError("Title is required")
	}
	if len(title) > maxTitleLen {
		return models.NewValidationError("Title too long (max 200 characters)")
	}
	if content == "" {
		return models.NewValidationError("Content is required")
	}
	if len(content) > maxPostContentLen {
		return models.NewValidationError("Content too long (max 50000 characters)")
	}
	return nil
}
