package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"vexillum/internal/database"
	"vexillum/internal/models"
	"vexillum/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

// memStore is an in-memory storage.Store.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (m *memStore) Store(_ context.Context, data []byte, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[name] = data
	return name, nil
}

func (m *memStore) Delete(_ context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, ref)
	m.deleted = append(m.deleted, ref)
	return nil
}

func (m *memStore) URL(ref string) string { return "/uploads/" + ref }

func (m *memStore) has(ref string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[ref]
	return ok
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

func tinyPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// testEnv wires every service over one sqlite database.
type testEnv struct {
	db       *gorm.DB
	store    *memStore
	images   *ImageService
	feed     *recordingFeed
	users    repository.UserRepository
	designs  *DesignService
	ratings  *RatingService
	comments *CommentService
	posts    *PostService
	convert  *ConvertService
	accounts *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	store := newMemStore()
	images := NewImageService(store, 1)
	feed := &recordingFeed{}

	designRepo := repository.NewDesignRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	postRepo := repository.NewPostRepository(db)
	userRepo := repository.NewUserRepository(db)
	ratings := NewRatingService(repository.NewRatingRepository(db), designRepo)

	return &testEnv{
		db:       db,
		store:    store,
		images:   images,
		feed:     feed,
		users:    userRepo,
		designs:  NewDesignService(designRepo, commentRepo, ratings, images, feed, 20),
		ratings:  ratings,
		comments: NewCommentService(commentRepo, designRepo, postRepo, feed),
		posts:    NewPostService(postRepo, commentRepo, images, feed, 20),
		convert:  NewConvertService(db, images, feed),
		accounts: NewUserService(userRepo),
	}
}

func (e *testEnv) user(t *testing.T, name string, admin bool) models.Actor {
	t.Helper()
	u := &models.User{Subject: "google:" + name, Name: name, Email: name + "@example.com", IsAdmin: admin}
	require.NoError(t, e.db.Create(u).Error)
	return models.ActorFor(u)
}

func (e *testEnv) submit(t *testing.T, actor models.Actor, title, hashtags string) *models.Design {
	t.Helper()
	d, err := e.designs.Submit(context.Background(), actor, SubmitDesignInput{
		Title:       title,
		Description: "about " + title,
		Hashtags:    hashtags,
		Image:       &UploadImageInput{Filename: title + ".png", Content: tinyPNG(t, 8, 6)},
	})
	require.NoError(t, err)
	return d
}

type recordingFeed struct {
	mu     sync.Mutex
	events []string
}

func (f *recordingFeed) Publish(_ context.Context, eventType string, _ interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, eventType)
}

func (f *recordingFeed) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeValidation)
}

// assertForbiddenError asserts that err is an AppError with code FORBIDDEN.
func assertForbiddenError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeForbidden)
}
