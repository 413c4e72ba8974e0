package repository

import (
	"fmt"
	"testing"
	"time"

	"vexillum/internal/database"
	"vexillum/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	// Every pooled connection to :memory: is a separate database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}
	return db
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func createUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	u := &models.User{
		Subject: "google|" + name,
		Name:    name,
		Email:   name + "@example.com",
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func createDesign(t *testing.T, db *gorm.DB, owner *models.User, title, hashtags string, createdAt time.Time) *models.Design {
	t.Helper()
	d := &models.Design{
		PublicID:    uuid.NewString(),
		Title:       title,
		Description: "about " + title,
		ImageRef:    fmt.Sprintf("%s.png", title),
		Hashtags:    models.NormalizeHashtags(hashtags),
		Approved:    true,
		UserID:      owner.ID,
		CreatedAt:   createdAt,
	}
	require.NoError(t, db.Omit("User").Create(d).Error)
	return d
}

func rate(t *testing.T, db *gorm.DB, user *models.User, design *models.Design, value int) {
	t.Helper()
	require.NoError(t, NewRatingRepository(db).Upsert(t.Context(), &models.Rating{
		UserID:   user.ID,
		DesignID: design.ID,
		Value:    value,
	}))
}
