package seed

import (
	"context"
	"fmt"
	"os"

	"vexillum/internal/middleware"
	"vexillum/internal/models"
	"vexillum/internal/service"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Options sizes a seeding run.
type Options struct {
	Users            int
	Designs          int
	Posts            int
	CommentsPerItem  int
	RatingsPerDesign int
	Announcements    int
}

// DefaultOptions is a small but browsable corpus.
var DefaultOptions = Options{
	Users:            20,
	Designs:          40,
	Posts:            30,
	CommentsPerItem:  3,
	RatingsPerDesign: 6,
	Announcements:    2,
}

// Curated holds the hand-picked subjects and tags a run draws from.
type Curated struct {
	Subjects []string `yaml:"subjects"`
	Tags     []string `yaml:"tags"`
}

var defaultTags = []string{
	"#tricolour", "#stars", "#southerncross", "#fern", "#kiwi", "#maori",
	"#minimal", "#traditional", "#modern", "#heraldic", "#koru",
}

func (c Curated) withDefaults() Curated {
	if len(c.Subjects) == 0 {
		c.Subjects = models.Subjects
	}
	if len(c.Tags) == 0 {
		c.Tags = defaultTags
	}
	return c
}

// LoadCurated reads a YAML file of subjects and tags. Tags are normalized to
// the #tag form.
func LoadCurated(path string) (Curated, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Curated{}, fmt.Errorf("read curated file: %w", err)
	}
	var c Curated
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Curated{}, fmt.Errorf("parse curated file: %w", err)
	}
	for i, tag := range c.Tags {
		if tag != "" && tag[0] != '#' {
			c.Tags[i] = "#" + tag
		}
	}
	return c, nil
}

// Summary counts what a run created.
type Summary struct {
	Users    int
	Designs  int
	Posts    int
	Comments int
	Ratings  int
}

// Seeder fills an empty database with demo content.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
}

func NewSeeder(db *gorm.DB, images *service.ImageService, curated Curated, seed int64) *Seeder {
	return &Seeder{db: db, factory: NewFactory(db, images, curated, seed)}
}

// ClearAll deletes every row, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	for _, model := range []interface{}{&models.Rating{}, &models.Comment{}, &models.Post{}, &models.Design{}, &models.User{}} {
		if err := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	middleware.Logger.Info("database cleared")
	return nil
}

// Run creates the corpus described by opts. The first user is an admin and
// authors the announcements.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Summary, error) {
	if opts.Users < 1 {
		return nil, fmt.Errorf("at least one user is required")
	}
	f := s.factory
	sum := &Summary{}

	users := make([]*models.User, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		admin := i == 0
		u, err := f.CreateUser(ctx, func(u *models.User) { u.IsAdmin = admin })
		if err != nil {
			return sum, err
		}
		users = append(users, u)
		sum.Users++
	}
	pick := func() *models.User { return users[f.rng.Intn(len(users))] }

	for i := 0; i < opts.Designs; i++ {
		design, err := f.CreateDesign(ctx, pick())
		if err != nil {
			return sum, err
		}
		sum.Designs++

		raters := f.rng.Perm(len(users))
		for _, idx := range raters[:min(opts.RatingsPerDesign, len(raters))] {
			if err := f.Rate(ctx, users[idx], design); err != nil {
				return sum, err
			}
			sum.Ratings++
		}
		for c := 0; c < opts.CommentsPerItem; c++ {
			if _, err := f.CreateComment(ctx, pick(), models.DesignParent(design.ID)); err != nil {
				return sum, err
			}
			sum.Comments++
		}
	}

	for i := 0; i < opts.Posts; i++ {
		author, postType := pick(), models.PostTypeDiscussion
		if i < opts.Announcements {
			author, postType = users[0], models.PostTypeAnnouncement
		}
		post, err := f.CreatePost(ctx, author, postType)
		if err != nil {
			return sum, err
		}
		sum.Posts++
		for c := 0; c < opts.CommentsPerItem; c++ {
			if _, err := f.CreateComment(ctx, pick(), models.PostParent(post.ID)); err != nil {
				return sum, err
			}
			sum.Comments++
		}
	}

	return sum, nil
}
