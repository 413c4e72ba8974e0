package service

import (
	"context"
	"log/slog"
	"strings"

	"vexillum/internal/middleware"
	"vexillum/internal/models"
	"vexillum/internal/repository"
)

type UserService struct {
	userRepo repository.UserRepository
}

// ToggleAdminResult is the outcome of an admin flag toggle. Warning is set,
// and User unchanged, when an admin targets themselves.
type ToggleAdminResult struct {
	User    *models.User `json:"user"`
	Warning string       `json:"warning,omitempty"`
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// LoginWithIdentity maps an external identity onto a user: by provider
// subject first, then by email (linking the subject), otherwise a new
// account. The very first account becomes an admin.
func (s *UserService) LoginWithIdentity(ctx context.Context, identity models.ExternalIdentity) (*models.User, error) {
	subject := subjectKey(identity)
	email := strings.ToLower(strings.TrimSpace(identity.Email))
	if strings.TrimSpace(identity.Subject) == "" {
		return nil, models.NewValidationError("Identity provider returned no subject")
	}
	if email == "" {
		return nil, models.NewValidationError("Identity provider returned no email")
	}

	user, err := s.userRepo.GetBySubject(ctx, subject)
	if err != nil {
		return nil, err
	}
	if user == nil {
		user, err = s.userRepo.GetByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if user != nil {
			middleware.Logger.InfoContext(ctx, "linking identity to existing account",
				slog.Uint64("user_id", uint64(user.ID)),
				slog.String("provider", identity.Provider),
			)
			user.Subject = subject
		}
	}

	if user == nil {
		user = &models.User{
			Subject:    subject,
			Name:       strings.TrimSpace(identity.Name),
			Email:      email,
			ProfilePic: identity.PictureURL,
		}
		if err := s.userRepo.CreateWithBootstrapAdmin(ctx, user); err != nil {
			return nil, err
		}
		if user.IsAdmin {
			middleware.Logger.InfoContext(ctx, "first account promoted to admin",
				slog.Uint64("user_id", uint64(user.ID)))
		}
		return user, nil
	}

	if name := strings.TrimSpace(identity.Name); name != "" {
		user.Name = name
	}
	if identity.PictureURL != "" {
		user.ProfilePic = identity.PictureURL
	}
	user.Email = email
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// ResolveActor loads the user behind an authenticated request.
func (s *UserService) ResolveActor(ctx context.Context, userID uint) (models.Actor, *models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return models.Actor{}, nil, err
	}
	return models.ActorFor(user), user, nil
}

func (s *UserService) ListUsers(ctx context.Context, actor models.Actor, limit, offset int) ([]models.User, error) {
	if err := requireAdmin(actor, "user"); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.userRepo.List(ctx, limit, offset)
}

// ToggleAdmin flips another user's admin flag. Admins cannot change their
// own flag this way; that request returns a warning and changes nothing.
func (s *UserService) ToggleAdmin(ctx context.Context, actor models.Actor, targetID uint) (*ToggleAdminResult, error) {
	if err := requireAdmin(actor, "user"); err != nil {
		return nil, err
	}
	target, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target.ID == actor.UserID {
		return &ToggleAdminResult{
			User:    target,
			Warning: "You cannot change your own admin status",
		}, nil
	}

	target.IsAdmin = !target.IsAdmin
	if err := s.userRepo.SetAdmin(ctx, target.ID, target.IsAdmin); err != nil {
		return nil, err
	}
	middleware.Logger.InfoContext(ctx, "admin flag toggled",
		slog.Uint64("actor_id", uint64(actor.UserID)),
		slog.Uint64("target_id", uint64(target.ID)),
		slog.Bool("is_admin", target.IsAdmin),
	)
	return &ToggleAdminResult{User: target}, nil
}

func subjectKey(identity models.ExternalIdentity) string {
	provider := strings.ToLower(strings.TrimSpace(identity.Provider))
	if provider == "" {
		provider = "google"
	}
	return provider + ":" + strings.TrimSpace(identity.Subject)
}
