// Package service holds the business rules of the design site: the ownership
// guard, listing, rating, content conversion and the CRUD flows around them.
package service

import (
	"fmt"

	"vexillum/internal/models"
	"vexillum/internal/observability"
)

// CanMutate reports whether actor may edit or delete an item authored by
// authorID: admins may touch anything, everyone else only their own items.
func CanMutate(actor models.Actor, authorID uint) bool {
	if actor.IsAdmin {
		return true
	}
	return actor.UserID != 0 && actor.UserID == authorID
}

func authorize(actor models.Actor, authorID uint, resource string) error {
	if actor.UserID == 0 {
		return models.NewUnauthorizedError("Authentication required")
	}
	if CanMutate(actor, authorID) {
		return nil
	}
	observability.GuardDenials.WithLabelValues(resource).Inc()
	return models.NewForbiddenError(fmt.Sprintf("You do not have permission to modify this %s", resource))
}

func requireAdmin(actor models.Actor, resource string) error {
	if actor.UserID == 0 {
		return models.NewUnauthorizedError("Authentication required")
	}
	if actor.IsAdmin {
		return nil
	}
	observability.GuardDenials.WithLabelValues(resource).Inc()
	return models.NewForbiddenError("Admin access required")
}

func requireUser(actor models.Actor) error {
	if actor.UserID == 0 {
		return models.NewUnauthorizedError("Authentication required")
	}
	return nil
}
