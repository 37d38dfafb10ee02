package server

import (
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// blogRequest lists the only fields a client may set on a blog. Anything
// else in the body, such as an author, is ignored.
type blogRequest struct {
	Title         *string   `json:"title"`
	Content       *string   `json:"content"`
	Tags          *[]string `json:"tags"`
	Collaborators *idList   `json:"collaborators"`
}

func (r blogRequest) collaborators() *[]uint {
	if r.Collaborators == nil {
		return nil
	}
	ids := []uint(*r.Collaborators)
	return &ids
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// CreateBlog handles POST /blogs
// @Summary Create blog
// @Description Create a blog authored by the caller
// @Tags blogs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{title=string,content=string,tags=[]string,collaborators=[]int} true "Blog"
// @Success 201 {object} models.BlogView
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /blogs [post]
func (s *Server) CreateBlog(c *fiber.Ctx) error {
	identity, _ := identityFrom(c)

	var req blogRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	blog, err := s.blogService.CreateBlog(c.UserContext(), service.CreateBlogInput{
		Title:         deref(req.Title),
		Content:       deref(req.Content),
		Tags:          deref(req.Tags),
		Collaborators: deref(req.collaborators()),
	}, identity)
	if err != nil {
		return s.respondWithServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(blog)
}

// GetBlogs handles GET /blogs
// @Summary List blogs
// @Description All blogs, newest first, with author and collaborators resolved
// @Tags blogs
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.BlogView
// @Failure 401 {object} models.ErrorResponse
// @Router /blogs [get]
func (s *Server) GetBlogs(c *fiber.Ctx) error {
	blogs, err := s.blogService.ListBlogs(c.UserContext())
	if err != nil {
		return s.respondWithServiceError(c, err)
	}
	return c.JSON(blogs)
}

// GetBlog handles GET /blogs/:id
// @Summary Get blog
// @Tags blogs
// @Produce json
// @Security BearerAuth
// @Param id path int true "Blog ID"
// @Success 200 {object} models.BlogView
// @Failure 404 {object} models.ErrorResponse
// @Router /blogs/{id} [get]
func (s *Server) GetBlog(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	blog, err := s.blogService.GetBlog(c.UserContext(), id)
	if err != nil {
		return s.respondWithServiceError(c, err)
	}
	return c.JSON(blog)
}

// UpdateBlog handles PUT /blogs/:id
// @Summary Update blog
// @Description Partially update title, content, tags or collaborators. Only the author, a collaborator or an admin may update.
// @Tags blogs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Blog ID"
// @Param request body object{title=string,content=string,tags=[]string,collaborators=[]int} true "Fields to change"
// @Success 200 {object} models.BlogView
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /blogs/{id} [put]
func (s *Server) UpdateBlog(c *fiber.Ctx) error {
	identity, _ := identityFrom(c)

	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req blogRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	blog, err := s.blogService.UpdateBlog(c.UserContext(), service.UpdateBlogInput{
		BlogID:        id,
		Title:         req.Title,
		Content:       req.Content,
		Tags:          req.Tags,
		Collaborators: req.collaborators(),
	}, identity)
	if err != nil {
		return s.respondWithServiceError(c, err)
	}
	return c.JSON(blog)
}

// DeleteBlog handles DELETE /blogs/:id
// @Summary Delete blog
// @Description Admins only
// @Tags blogs
// @Produce json
// @Security BearerAuth
// @Param id path int true "Blog ID"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /blogs/{id} [delete]
func (s *Server) DeleteBlog(c *fiber.Ctx) error {
	identity, _ := identityFrom(c)

	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.blogService.DeleteBlog(c.UserContext(), id, identity); err != nil {
		return s.respondWithServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Blog deleted successfully"})
}
