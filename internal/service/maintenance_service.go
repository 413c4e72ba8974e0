package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"vexillum/internal/middleware"
	"vexillum/internal/models"
	"vexillum/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DedupeReport summarises a dedupe run.
type DedupeReport struct {
	Groups         int   `json:"groups"`
	Removed        int   `json:"removed"`
	CommentsMoved  int64 `json:"comments_moved"`
	RatingsMoved   int64 `json:"ratings_moved"`
	RatingsDropped int64 `json:"ratings_dropped"`
	DryRun         bool  `json:"dry_run"`
}

// MaintenanceService implements the one-off data repairs run from flagctl.
type MaintenanceService struct {
	db     *gorm.DB
	users  repository.UserRepository
	images *ImageService
}

// NewMaintenanceService builds the service. images may be nil, in which
// case no stored files are touched.
func NewMaintenanceService(db *gorm.DB, images *ImageService) *MaintenanceService {
	return &MaintenanceService{
		db:     db,
		users:  repository.NewUserRepository(db),
		images: images,
	}
}

// BackfillPublicIDs gives every design without a public id a fresh one.
func (s *MaintenanceService) BackfillPublicIDs(ctx context.Context) (int, error) {
	var designs []models.Design
	if err := s.db.WithContext(ctx).
		Select("id").
		Where("public_id IS NULL OR public_id = ''").
		Order("id ASC").
		Find(&designs).Error; err != nil {
		return 0, fmt.Errorf("find designs without public id: %w", err)
	}

	for _, d := range designs {
		if err := s.db.WithContext(ctx).
			Model(&models.Design{}).
			Where("id = ?", d.ID).
			UpdateColumn("public_id", uuid.NewString()).Error; err != nil {
			return 0, fmt.Errorf("backfill design %d: %w", d.ID, err)
		}
	}
	return len(designs), nil
}

type designKey struct {
	title       string
	description string
	createdAt   string
}

type postKey struct {
	title     string
	createdAt string
}

func timeKey(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// DedupeDesigns collapses designs sharing title, description and creation
// time onto the lowest id. Comments and ratings move to the keeper; a rating
// whose user already rated the keeper is dropped.
func (s *MaintenanceService) DedupeDesigns(ctx context.Context, dryRun bool) (*DedupeReport, error) {
	var designs []models.Design
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&designs).Error; err != nil {
		return nil, fmt.Errorf("load designs: %w", err)
	}

	groups := make(map[designKey][]models.Design)
	var order []designKey
	for _, d := range designs {
		k := designKey{d.Title, d.Description, timeKey(d.CreatedAt)}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], d)
	}

	report := &DedupeReport{DryRun: dryRun}
	for _, k := range order {
		group := groups[k]
		if len(group) < 2 {
			continue
		}
		report.Groups++
		keeper := group[0]
		for _, dup := range group[1:] {
			report.Removed++
			if dryRun {
				continue
			}
			if err := s.mergeDesign(ctx, keeper, dup, report); err != nil {
				return report, err
			}
			if s.images != nil && dup.ImageRef != keeper.ImageRef {
				s.images.Delete(ctx, dup.ImageRef)
			}
			if s.images != nil && dup.ThumbnailRef != keeper.ThumbnailRef {
				s.images.Delete(ctx, dup.ThumbnailRef)
			}
		}
	}
	return report, nil
}

func (s *MaintenanceService) mergeDesign(ctx context.Context, keeper, dup models.Design, report *DedupeReport) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		moved, err := repository.NewCommentRepository(tx).
			Reparent(ctx, models.DesignParent(dup.ID), models.DesignParent(keeper.ID))
		if err != nil {
			return err
		}

		keeperRaters := tx.Model(&models.Rating{}).Select("user_id").Where("design_id = ?", keeper.ID)
		dropped := tx.Where("design_id = ? AND user_id IN (?)", dup.ID, keeperRaters).Delete(&models.Rating{})
		if dropped.Error != nil {
			return fmt.Errorf("drop colliding ratings of design %d: %w", dup.ID, dropped.Error)
		}
		reassigned := tx.Model(&models.Rating{}).Where("design_id = ?", dup.ID).UpdateColumn("design_id", keeper.ID)
		if reassigned.Error != nil {
			return fmt.Errorf("move ratings of design %d: %w", dup.ID, reassigned.Error)
		}
		if err := tx.Delete(&models.Design{}, dup.ID).Error; err != nil {
			return fmt.Errorf("delete design %d: %w", dup.ID, err)
		}

		report.CommentsMoved += moved
		report.RatingsDropped += dropped.RowsAffected
		report.RatingsMoved += reassigned.RowsAffected
		middleware.Logger.InfoContext(ctx, "merged duplicate design",
			slog.Uint64("keeper_id", uint64(keeper.ID)),
			slog.Uint64("duplicate_id", uint64(dup.ID)),
		)
		return nil
	})
}

// DedupePosts collapses posts sharing title and creation time. The keeper
// is the lowest id holding an image, else the lowest id.
func (s *MaintenanceService) DedupePosts(ctx context.Context, dryRun bool) (*DedupeReport, error) {
	var posts []models.Post
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("load posts: %w", err)
	}

	groups := make(map[postKey][]models.Post)
	var order []postKey
	for _, p := range posts {
		k := postKey{p.Title, timeKey(p.CreatedAt)}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], p)
	}

	report := &DedupeReport{DryRun: dryRun}
	for _, k := range order {
		group := groups[k]
		if len(group) < 2 {
			continue
		}
		report.Groups++

		keeperIdx := 0
		for i := range group {
			if group[i].HasImage() {
				keeperIdx = i
				break
			}
		}
		keeper := group[keeperIdx]

		for i, dup := range group {
			if i == keeperIdx {
				continue
			}
			report.Removed++
			if dryRun {
				continue
			}
			err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				moved, err := repository.NewCommentRepository(tx).
					Reparent(ctx, models.PostParent(dup.ID), models.PostParent(keeper.ID))
				if err != nil {
					return err
				}
				if err := tx.Delete(&models.Post{}, dup.ID).Error; err != nil {
					return fmt.Errorf("delete post %d: %w", dup.ID, err)
				}
				report.CommentsMoved += moved
				return nil
			})
			if err != nil {
				return report, err
			}
			if s.images != nil && dup.HasImage() && (!keeper.HasImage() || *dup.ImageRef != *keeper.ImageRef) {
				s.images.Delete(ctx, *dup.ImageRef, dup.ThumbnailRef)
			}
		}
	}
	return report, nil
}

// PromoteFirstAdmin makes the oldest account an admin. It returns nil when
// there are no users.
func (s *MaintenanceService) PromoteFirstAdmin(ctx context.Context) (*models.User, error) {
	first, err := s.users.First(ctx)
	if err != nil || first == nil {
		return nil, err
	}
	if !first.IsAdmin {
		if err := s.users.SetAdmin(ctx, first.ID, true); err != nil {
			return nil, err
		}
		first.IsAdmin = true
	}
	return first, nil
}

func (s *MaintenanceService) ListAdmins(ctx context.Context) ([]models.User, error) {
	return s.users.ListAdmins(ctx)
}

// SetAdmin sets a user's admin flag directly, bypassing the self-toggle rule.
func (s *MaintenanceService) SetAdmin(ctx context.Context, userID uint, isAdmin bool) (*models.User, error) {
	if err := s.users.SetAdmin(ctx, userID, isAdmin); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, userID)
}
