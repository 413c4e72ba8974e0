package server

import (
	"vexillum/internal/models"
	"vexillum/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListDesigns godoc
// @Summary List approved designs
// @Description Filters by search text and rating bucket, sorts and paginates. Unknown sort or rating values are ignored.
// @Tags designs
// @Produce json
// @Param q query string false "Search in title, description and hashtags"
// @Param sort query string false "newest (default) or top"
// @Param rating query string false "unrated or 1-10"
// @Param page query int false "Page number (1-based)"
// @Success 200 {object} map[string]interface{}
// @Router /designs [get]
func (s *Server) ListDesigns(c *fiber.Ctx) error {
	page, err := s.designService.List(c.UserContext(), service.ListDesignsInput{
		Search: c.Query("q"),
		Sort:   c.Query("sort"),
		Rating: c.Query("rating"),
		Page:   parsePage(c),
	})
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(page)
}

// GetDesign godoc
// @Summary Design detail
// @Description Returns the design, its comments and its rating aggregate.
// @Tags designs
// @Produce json
// @Param publicID path string true "Design public id"
// @Success 200 {object} service.DesignDetail
// @Failure 404 {object} models.ErrorResponse
// @Router /designs/{publicID} [get]
func (s *Server) GetDesign(c *fiber.Ctx) error {
	detail, err := s.designService.Get(c.UserContext(), s.viewerFrom(c), c.Params("publicID"))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(detail)
}

// SubmitDesign godoc
// @Summary Submit a design
// @Tags designs
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param description formData string false "Description"
// @Param hashtags formData string false "Hashtags, e.g. #red #star"
// @Param image formData file true "Flag image"
// @Success 201 {object} models.Design
// @Failure 400 {object} models.ErrorResponse
// @Router /designs [post]
func (s *Server) SubmitDesign(c *fiber.Ctx) error {
	upload, err := readUpload(c)
	if err != nil {
		return s.respondServiceError(c, err)
	}

	in := service.SubmitDesignInput{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Hashtags:    c.FormValue("hashtags"),
		Image:       upload,
	}
	design, err := s.designService.Submit(c.UserContext(), actorFrom(c), in)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(design)
}

// UpdateDesign godoc
// @Summary Edit a design
// @Description Owner or admin only. Omitted fields are left unchanged; a new image replaces the old one.
// @Tags designs
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param publicID path string true "Design public id"
// @Param title formData string false "Title"
// @Param description formData string false "Description"
// @Param hashtags formData string false "Hashtags"
// @Param image formData file false "Replacement image"
// @Success 200 {object} models.Design
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /designs/{publicID} [put]
func (s *Server) UpdateDesign(c *fiber.Ctx) error {
	upload, err := readUpload(c)
	if err != nil {
		return s.respondServiceError(c, err)
	}

	in := service.UpdateDesignInput{
		Title:       formValue(c, "title"),
		Description: formValue(c, "description"),
		Hashtags:    formValue(c, "hashtags"),
		Image:       upload,
		RemoveImage: formFlag(c, "remove_image"),
	}
	design, err := s.designService.Update(c.UserContext(), actorFrom(c), c.Params("publicID"), in)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(design)
}

// DeleteDesign godoc
// @Summary Delete a design
// @Description Owner or admin only. Removes the design's comments and ratings too.
// @Tags designs
// @Security BearerAuth
// @Produce json
// @Param publicID path string true "Design public id"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /designs/{publicID} [delete]
func (s *Server) DeleteDesign(c *fiber.Ctx) error {
	if err := s.designService.Delete(c.UserContext(), actorFrom(c), c.Params("publicID")); err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Design deleted successfully"})
}

// RateDesign godoc
// @Summary Rate a design
// @Description Creates or replaces the caller's 1-10 rating. Out-of-range values are ignored and answered with a warning.
// @Tags designs
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param publicID path string true "Design public id"
// @Success 200 {object} service.RatingResult
// @Failure 404 {object} models.ErrorResponse
// @Router /designs/{publicID}/rate [post]
func (s *Server) RateDesign(c *fiber.Ctx) error {
	var req struct {
		Rating int `json:"rating" form:"rating"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	result, err := s.ratingService.SubmitRating(c.UserContext(), actorFrom(c), c.Params("publicID"), req.Rating)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(result)
}

// CreateDesignComment godoc
// @Summary Comment on a design
// @Tags designs
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param publicID path string true "Design public id"
// @Success 201 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /designs/{publicID}/comments [post]
func (s *Server) CreateDesignComment(c *fiber.Ctx) error {
	content, err := parseContent(c)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	comment, err := s.commentService.AddDesignComment(c.UserContext(), actorFrom(c), c.Params("publicID"), content)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// GetUserDesigns godoc
// @Summary A user's designs, newest first
// @Tags designs
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {array} models.Design
// @Router /users/{id}/designs [get]
func (s *Server) GetUserDesigns(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	designs, err := s.designService.ListByUser(c.UserContext(), userID)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	if designs == nil {
		designs = []*models.Design{}
	}
	return c.JSON(designs)
}

// GetTopTags godoc
// @Summary The five most used hashtags
// @Tags tags
// @Produce json
// @Success 200 {array} taxonomy.TagCount
// @Router /tags/top [get]
func (s *Server) GetTopTags(c *fiber.Ctx) error {
	tags, err := s.designService.TopTags(c.UserContext(), service.TopTagsLimit)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(tags)
}

// GetAllTags godoc
// @Summary Every hashtag with its count, most used first
// @Tags tags
// @Produce json
// @Success 200 {array} taxonomy.TagCount
// @Router /tags [get]
func (s *Server) GetAllTags(c *fiber.Ctx) error {
	tags, err := s.designService.AllTags(c.UserContext())
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(tags)
}

// GetUniqueTags godoc
// @Summary Alphabetical list of distinct hashtags
// @Tags tags
// @Produce json
// @Success 200 {array} string
// @Router /tags/unique [get]
func (s *Server) GetUniqueTags(c *fiber.Ctx) error {
	tags, err := s.designService.UniqueTags(c.UserContext())
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(tags)
}
