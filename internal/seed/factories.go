// Package seed builds demo data for local development: users, flag designs
// with generated artwork, ratings, forum posts and comments.
package seed

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math/rand"
	"strings"
	"time"

	"vexillum/internal/models"
	"vexillum/internal/repository"
	"vexillum/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	flagWidth  = 600
	flagHeight = 400
)

// Factory builds domain entities and persists them through the repositories.
type Factory struct {
	db       *gorm.DB
	images   *service.ImageService
	designs  repository.DesignRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
	ratings  repository.RatingRepository
	curated  Curated
	rng      *rand.Rand
	maxDays  int
}

// NewFactory creates a Factory. A zero seed picks a time-based one.
func NewFactory(db *gorm.DB, images *service.ImageService, curated Curated, seed int64) *Factory {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gofakeit.Seed(seed)
	return &Factory{
		db:       db,
		images:   images,
		designs:  repository.NewDesignRepository(db),
		posts:    repository.NewPostRepository(db),
		comments: repository.NewCommentRepository(db),
		ratings:  repository.NewRatingRepository(db),
		curated:  curated.withDefaults(),
		rng:      rand.New(rand.NewSource(seed)),
		maxDays:  90,
	}
}

// pastTime spreads created_at over the last maxDays.
func (f *Factory) pastTime() time.Time {
	back := time.Duration(f.rng.Intn(f.maxDays*24*60)) * time.Minute
	return time.Now().Add(-back)
}

// CreateUser persists a sample user. Overrides run before saving.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	name := gofakeit.Name()
	user := &models.User{
		Subject:    "seed:" + uuid.NewString(),
		Name:       name,
		Email:      fmt.Sprintf("%s.%d@example.com", strings.ToLower(gofakeit.Username()), gofakeit.Number(1000, 9999)),
		ProfilePic: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
	}
	for _, override := range overrides {
		override(user)
	}
	if err := f.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// hashtags picks one to three curated tags.
func (f *Factory) hashtags() *string {
	n := 1 + f.rng.Intn(3)
	picked := make([]string, 0, n)
	seen := map[string]bool{}
	for len(picked) < n {
		tag := f.curated.Tags[f.rng.Intn(len(f.curated.Tags))]
		if seen[tag] {
			if len(seen) == len(f.curated.Tags) {
				break
			}
			continue
		}
		seen[tag] = true
		picked = append(picked, tag)
	}
	return models.NormalizeHashtags(strings.Join(picked, " "))
}

// CreateDesign renders a random flag, stores it and persists an approved
// design owned by user.
func (f *Factory) CreateDesign(ctx context.Context, user *models.User, overrides ...func(*models.Design)) (*models.Design, error) {
	art, err := f.renderFlag()
	if err != nil {
		return nil, err
	}
	stored, err := f.images.Save(ctx, service.UploadImageInput{
		Filename: "seed-flag.png",
		Content:  art,
	})
	if err != nil {
		return nil, fmt.Errorf("store flag image: %w", err)
	}

	design := &models.Design{
		PublicID:     uuid.NewString(),
		Title:        fmt.Sprintf("%s %s", gofakeit.Adjective(), gofakeit.Noun()),
		Description:  gofakeit.Sentence(12),
		ImageRef:     stored.Ref,
		ThumbnailRef: stored.ThumbnailRef,
		Hashtags:     f.hashtags(),
		Approved:     true,
		UserID:       user.ID,
		CreatedAt:    f.pastTime(),
	}
	for _, override := range overrides {
		override(design)
	}
	if err := f.designs.Create(ctx, design); err != nil {
		f.images.Delete(ctx, stored.Ref, stored.ThumbnailRef)
		return nil, err
	}
	return design, nil
}

// CreatePost persists a discussion post, or an announcement when the author
// is an admin and asked for one.
func (f *Factory) CreatePost(ctx context.Context, user *models.User, postType string) (*models.Post, error) {
	if postType != models.PostTypeAnnouncement || !user.IsAdmin {
		postType = models.PostTypeDiscussion
	}
	post := &models.Post{
		Title:     gofakeit.Sentence(5),
		Content:   gofakeit.Paragraph(1, 3, 8, "\n"),
		PostType:  postType,
		Subject:   f.curated.Subjects[f.rng.Intn(len(f.curated.Subjects))],
		UserID:    user.ID,
		CreatedAt: f.pastTime(),
	}
	if err := f.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// CreateComment attaches a comment by user to parent.
func (f *Factory) CreateComment(ctx context.Context, user *models.User, parent models.CommentParent) (*models.Comment, error) {
	comment, err := models.NewComment(parent, user.ID, gofakeit.Sentence(gofakeit.Number(4, 16)))
	if err != nil {
		return nil, err
	}
	if err := f.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// Rate records a rating between 1 and 10, weighted toward the middle.
func (f *Factory) Rate(ctx context.Context, user *models.User, design *models.Design) error {
	value := 1 + (f.rng.Intn(10)+f.rng.Intn(10))/2
	return f.ratings.Upsert(ctx, &models.Rating{UserID: user.ID, DesignID: design.ID, Value: value})
}

var palette = []color.RGBA{
	{R: 0xce, G: 0x11, B: 0x26, A: 0xff},
	{R: 0x00, G: 0x2b, B: 0x7f, A: 0xff},
	{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
	{R: 0x00, G: 0x7a, B: 0x3d, A: 0xff},
	{R: 0xfc, G: 0xd1, B: 0x16, A: 0xff},
	{R: 0x00, G: 0x00, B: 0x00, A: 0xff},
	{R: 0x00, G: 0x9e, B: 0xe0, A: 0xff},
}

// renderFlag draws a horizontal or vertical tricolour, sometimes with a
// canton, and encodes it as PNG.
func (f *Factory) renderFlag() ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, flagWidth, flagHeight))
	perm := f.rng.Perm(len(palette))
	vertical := f.rng.Intn(2) == 0

	for i := 0; i < 3; i++ {
		var band image.Rectangle
		if vertical {
			band = image.Rect(i*flagWidth/3, 0, (i+1)*flagWidth/3, flagHeight)
		} else {
			band = image.Rect(0, i*flagHeight/3, flagWidth, (i+1)*flagHeight/3)
		}
		draw.Draw(img, band, &image.Uniform{C: palette[perm[i]]}, image.Point{}, draw.Src)
	}
	if f.rng.Intn(3) == 0 {
		canton := image.Rect(0, 0, flagWidth*2/5, flagHeight/2)
		draw.Draw(img, canton, &image.Uniform{C: palette[perm[3]]}, image.Point{}, draw.Src)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode flag: %w", err)
	}
	return buf.Bytes(), nil
}
