package server

import (
	"vexillum/internal/models"
	"vexillum/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetPosts godoc
// @Summary List discussion posts, newest first
// @Tags posts
// @Produce json
// @Param type query string false "discussion or announcement"
// @Param subject query string false "Subject filter"
// @Param page query int false "Page number (1-based)"
// @Success 200 {object} map[string]interface{}
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page, err := s.postService.ListPosts(c.UserContext(), service.ListPostsInput{
		PostType: c.Query("type"),
		Subject:  c.Query("subject"),
		Page:     parsePage(c),
	})
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(page)
}

// GetPostSubjects godoc
// @Summary Suggested post subjects
// @Tags posts
// @Produce json
// @Success 200 {array} string
// @Router /posts/subjects [get]
func (s *Server) GetPostSubjects(c *fiber.Ctx) error {
	return c.JSON(s.postService.Subjects())
}

// GetPost godoc
// @Summary Post detail with comments
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} service.PostDetail
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	detail, err := s.postService.GetPost(c.UserContext(), id)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(detail)
}

// CreatePost godoc
// @Summary Create a post
// @Description Announcements are admin-only.
// @Tags posts
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param content formData string true "Content"
// @Param post_type formData string false "discussion or announcement"
// @Param subject formData string false "Subject"
// @Param image formData file false "Optional image"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req struct {
		Title    string `json:"title" form:"title"`
		Content  string `json:"content" form:"content"`
		PostType string `json:"post_type" form:"post_type"`
		Subject  string `json:"subject" form:"subject"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	upload, err := readUpload(c)
	if err != nil {
		return s.respondServiceError(c, err)
	}

	post, err := s.postService.CreatePost(c.UserContext(), actorFrom(c), service.CreatePostInput{
		Title:    req.Title,
		Content:  req.Content,
		PostType: req.PostType,
		Subject:  req.Subject,
		Image:    upload,
	})
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// UpdatePost godoc
// @Summary Edit a post
// @Description Owner or admin only. Omitted fields are left unchanged.
// @Tags posts
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Post ID"
// @Param remove_image formData bool false "Drop the current image"
// @Success 200 {object} models.Post
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	upload, err := readUpload(c)
	if err != nil {
		return s.respondServiceError(c, err)
	}

	post, err := s.postService.UpdatePost(c.UserContext(), actorFrom(c), id, service.UpdatePostInput{
		Title:       formValue(c, "title"),
		Content:     formValue(c, "content"),
		Subject:     formValue(c, "subject"),
		PostType:    formValue(c, "post_type"),
		Image:       upload,
		RemoveImage: formFlag(c, "remove_image"),
	})
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(post)
}

// DeletePost godoc
// @Summary Delete a post and its comments
// @Tags posts
// @Security BearerAuth
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.DeletePost(c.UserContext(), actorFrom(c), id); err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted successfully"})
}

// CreatePostComment godoc
// @Summary Comment on a post
// @Tags posts
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Success 201 {object} models.Comment
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/comments [post]
func (s *Server) CreatePostComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	content, err := parseContent(c)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	comment, err := s.commentService.AddComment(c.UserContext(), actorFrom(c), models.PostParent(id), content)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// UpdateComment godoc
// @Summary Edit a comment
// @Tags comments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Comment ID"
// @Success 200 {object} models.Comment
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{id} [put]
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	content, err := parseContent(c)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	comment, err := s.commentService.UpdateComment(c.UserContext(), actorFrom(c), id, content)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(comment)
}

// DeleteComment godoc
// @Summary Delete a comment
// @Tags comments
// @Security BearerAuth
// @Produce json
// @Param id path int true "Comment ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{id} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.commentService.DeleteComment(c.UserContext(), actorFrom(c), id); err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Comment deleted successfully"})
}
