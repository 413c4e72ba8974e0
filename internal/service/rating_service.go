package service

import (
	"context"

	"vexillum/internal/models"
	"vexillum/internal/observability"
	"vexillum/internal/repository"
	"vexillum/internal/taxonomy"
)

// RatingResult reports what a rating submission did.
type RatingResult struct {
	Submitted bool                 `json:"submitted"`
	Warning   string               `json:"warning,omitempty"`
	Rating    models.RatingSummary `json:"rating"`
}

// RatingService is the rating aggregator.
type RatingService struct {
	ratings repository.RatingRepository
	designs repository.DesignRepository
}

func NewRatingService(ratings repository.RatingRepository, designs repository.DesignRepository) *RatingService {
	return &RatingService{ratings: ratings, designs: designs}
}

// SubmitRating records actor's score for the design. Values outside 1..10
// are ignored: the result has Submitted false and nothing is written.
func (s *RatingService) SubmitRating(ctx context.Context, actor models.Actor, publicID string, value int) (*RatingResult, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	design, err := s.designs.GetByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}

	result := &RatingResult{}
	if taxonomy.ValidRating(value) {
		if err := s.ratings.Upsert(ctx, &models.Rating{
			UserID:   actor.UserID,
			DesignID: design.ID,
			Value:    value,
		}); err != nil {
			return nil, err
		}
		result.Submitted = true
		observability.RatingsSubmitted.WithLabelValues("stored").Inc()
	} else {
		result.Warning = "Rating must be a whole number from 1 to 10"
		observability.RatingsSubmitted.WithLabelValues("ignored").Inc()
	}

	summary, err := s.Summary(ctx, design.ID, actor.UserID)
	if err != nil {
		return nil, err
	}
	result.Rating = summary
	return result, nil
}

// MeanRating is the design's mean rating rounded to one decimal, or nil
// when nobody has rated it.
func (s *RatingService) MeanRating(ctx context.Context, designID uint) (*float64, error) {
	mean, _, err := s.ratings.Stats(ctx, designID)
	if err != nil || mean == nil {
		return nil, err
	}
	rounded := taxonomy.RoundDisplay(*mean)
	return &rounded, nil
}

// Summary builds the rating aggregate; viewerID 0 skips the viewer's own score.
func (s *RatingService) Summary(ctx context.Context, designID, viewerID uint) (models.RatingSummary, error) {
	mean, count, err := s.ratings.Stats(ctx, designID)
	if err != nil {
		return models.RatingSummary{}, err
	}
	summary := models.RatingSummary{Count: count, Display: taxonomy.DisplayRating(mean)}
	if mean != nil {
		rounded := taxonomy.RoundDisplay(*mean)
		summary.Mean = &rounded
	}
	if viewerID != 0 {
		mine, err := s.ratings.GetUserRating(ctx, viewerID, designID)
		if err != nil {
			return models.RatingSummary{}, err
		}
		if mine != nil {
			v := mine.Value
			summary.Mine = &v
		}
	}
	return summary, nil
}
