package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetAllUsers godoc
// @Summary List users
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {array} models.User
// @Failure 403 {object} models.ErrorResponse
// @Router /admin/users [get]
func (s *Server) GetAllUsers(c *fiber.Ctx) error {
	page := parsePagination(c, 100)
	users, err := s.userService.ListUsers(c.UserContext(), actorFrom(c), page.Limit, page.Offset)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(users)
}

// ToggleAdmin godoc
// @Summary Flip a user's admin flag
// @Description Admins cannot change their own flag; that request succeeds with a warning and no change.
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} service.ToggleAdminResult
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/users/{id}/toggle-admin [post]
func (s *Server) ToggleAdmin(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	result, err := s.userService.ToggleAdmin(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(result)
}

// ConvertPostToDesign godoc
// @Summary Turn a post with an image into a design
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param id path int true "Post ID"
// @Success 201 {object} models.Design
// @Failure 404 {object} models.ErrorResponse
// @Failure 412 {object} models.ErrorResponse
// @Router /admin/posts/{id}/convert [post]
func (s *Server) ConvertPostToDesign(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	design, err := s.convertService.PostToDesign(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(design)
}

// ConvertDesignToPost godoc
// @Summary Turn a design into a discussion post
// @Description The design's ratings are discarded; its comments move to the new post.
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param publicID path string true "Design public id"
// @Success 201 {object} models.Post
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/designs/{publicID}/convert [post]
func (s *Server) ConvertDesignToPost(c *fiber.Ctx) error {
	post, err := s.convertService.DesignToPost(c.UserContext(), actorFrom(c), c.Params("publicID"))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// DedupeDesigns godoc
// @Summary Merge duplicate designs
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param dry_run query bool false "Report without changing anything"
// @Success 200 {object} service.DedupeReport
// @Router /admin/maintenance/dedupe-designs [post]
func (s *Server) DedupeDesigns(c *fiber.Ctx) error {
	report, err := s.maintenanceService.DedupeDesigns(c.UserContext(), c.QueryBool("dry_run", false))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(report)
}

// DedupePosts godoc
// @Summary Merge duplicate posts
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param dry_run query bool false "Report without changing anything"
// @Success 200 {object} service.DedupeReport
// @Router /admin/maintenance/dedupe-posts [post]
func (s *Server) DedupePosts(c *fiber.Ctx) error {
	report, err := s.maintenanceService.DedupePosts(c.UserContext(), c.QueryBool("dry_run", false))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(report)
}
