package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/lockyolinks/lockyolinks/internal/app/access"
	"github.com/lockyolinks/lockyolinks/internal/app/model"
	"github.com/lockyolinks/lockyolinks/internal/app/repository"
	"github.com/lockyolinks/lockyolinks/internal/app/service"
	"github.com/lockyolinks/lockyolinks/internal/http/middleware"
	"go.uber.org/zap"
)

// APIDeps groups dependencies required by the owner management API.
type APIDeps struct {
	Logger  *zap.Logger
	Links   *service.LinkService
	BaseURL string
}

// APIHandler implements the owner-facing link management endpoints.
type APIHandler struct {
	logger  *zap.Logger
	links   *service.LinkService
	baseURL string
}

// NewAPIHandler creates an API handler with the provided dependencies.
func NewAPIHandler(deps APIDeps) *APIHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		logger:  logger,
		links:   deps.Links,
		baseURL: deps.BaseURL,
	}
}

// Register wires the management routes onto the provided router. All of them
// require an authenticated owner.
func (h *APIHandler) Register(router fiber.Router) {
	links := router.Group("/api/links", middleware.RequireUser())
	{
		links.Post("/", h.CreateLink)
		links.Get("/", h.ListLinks)
		links.Patch("/:shortId", h.UpdateLink)
		links.Delete("/:shortId", h.DeleteLink)
	}
}

// CreateLinkRequest represents the request body for creating a link.
type CreateLinkRequest struct {
	OriginalURL   string     `json:"originalUrl"`
	Title         string     `json:"title,omitempty"`
	Disabled      bool       `json:"disabled,omitempty"`
	Password      string     `json:"password,omitempty"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	MaxClicks     *int       `json:"maxClicks,omitempty"`
	IsInviteOnly  bool       `json:"isInviteOnly,omitempty"`
	AllowedEmails []string   `json:"allowedEmails,omitempty"`
}

// LinkResponse is the owner-facing representation of a link. Password
// material never appears here.
type LinkResponse struct {
	ID            string     `json:"id"`
	ShortID       string     `json:"shortId"`
	ShortURL      string     `json:"shortUrl"`
	OriginalURL   string     `json:"originalUrl"`
	Title         string     `json:"title"`
	IsDisabled    bool       `json:"isDisabled"`
	ExpiresAt     *time.Time `json:"expiresAt"`
	MaxClicks     *int       `json:"maxClicks"`
	ClickCount    int        `json:"clickCount"`
	HasPassword   bool       `json:"hasPassword"`
	IsInviteOnly  bool       `json:"isInviteOnly"`
	AllowedEmails []string   `json:"allowedEmails,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func (h *APIHandler) linkResponse(link *model.Link) LinkResponse {
	return LinkResponse{
		ID:            link.ID,
		ShortID:       link.ShortID,
		ShortURL:      h.baseURL + "/" + link.ShortID,
		OriginalURL:   link.OriginalURL,
		Title:         link.Title,
		IsDisabled:    link.IsDisabled,
		ExpiresAt:     link.ExpiresAt,
		MaxClicks:     link.MaxClicks,
		ClickCount:    link.ClickCount,
		HasPassword:   link.HasPassword,
		IsInviteOnly:  link.IsInviteOnly,
		AllowedEmails: link.AllowedEmails,
		CreatedAt:     link.CreatedAt,
		UpdatedAt:     link.UpdatedAt,
	}
}

// CreateLink handles POST /api/links.
func (h *APIHandler) CreateLink(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required"})
	}

	var req CreateLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	link, err := h.links.CreateLink(requestContext(c), service.CreateLinkInput{
		UserID:        user.ID,
		OriginalURL:   req.OriginalURL,
		Title:         req.Title,
		Disabled:      req.Disabled,
		Password:      req.Password,
		ExpiresAt:     req.ExpiresAt,
		MaxClicks:     req.MaxClicks,
		InviteOnly:    req.IsInviteOnly,
		AllowedEmails: req.AllowedEmails,
	})
	if err != nil {
		if badInput(err) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		h.logger.Error("failed to create link", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create link",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(h.linkResponse(link))
}

// ListLinks handles GET /api/links.
func (h *APIHandler) ListLinks(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required"})
	}

	limit := 20
	if parsed := c.QueryInt("limit"); parsed > 0 && parsed <= 100 {
		limit = parsed
	}
	offset := 0
	if parsed := c.QueryInt("offset"); parsed > 0 {
		offset = parsed
	}

	links, err := h.links.ListLinks(requestContext(c), user.ID, limit, offset)
	if err != nil {
		h.logger.Error("failed to list links", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list links",
		})
	}

	response := make([]LinkResponse, len(links))
	for i := range links {
		response[i] = h.linkResponse(&links[i])
	}

	return c.JSON(fiber.Map{
		"links":  response,
		"limit":  limit,
		"offset": offset,
		"count":  len(response),
	})
}

// UpdateLinkRequest represents the request body for editing a link. Omitted
// fields stay untouched; the clear flags drop an optional gate.
type UpdateLinkRequest struct {
	OriginalURL    *string    `json:"originalUrl,omitempty"`
	Title          *string    `json:"title,omitempty"`
	Disabled       *bool      `json:"disabled,omitempty"`
	Password       *string    `json:"password,omitempty"`
	ClearPassword  bool       `json:"clearPassword,omitempty"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	ClearExpiry    bool       `json:"clearExpiry,omitempty"`
	MaxClicks      *int       `json:"maxClicks,omitempty"`
	ClearMaxClicks bool       `json:"clearMaxClicks,omitempty"`
	IsInviteOnly   *bool      `json:"isInviteOnly,omitempty"`
	AllowedEmails  []string   `json:"allowedEmails,omitempty"`
}

// UpdateLink handles PATCH /api/links/:shortId.
func (h *APIHandler) UpdateLink(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required"})
	}

	var req UpdateLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	link, err := h.links.UpdateLink(requestContext(c), user.ID, c.Params("shortId"), service.UpdateLinkInput{
		OriginalURL:    req.OriginalURL,
		Title:          req.Title,
		Disabled:       req.Disabled,
		Password:       req.Password,
		ClearPassword:  req.ClearPassword,
		ExpiresAt:      req.ExpiresAt,
		ClearExpiry:    req.ClearExpiry,
		MaxClicks:      req.MaxClicks,
		ClearMaxClicks: req.ClearMaxClicks,
		InviteOnly:     req.IsInviteOnly,
		AllowedEmails:  req.AllowedEmails,
	})
	if err != nil {
		return h.ownerError(c, err, "failed to update link")
	}

	return c.JSON(h.linkResponse(link))
}

// DeleteLink handles DELETE /api/links/:shortId. Deletion is a soft delete;
// the short id keeps resolving to its terminal page.
func (h *APIHandler) DeleteLink(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required"})
	}

	if err := h.links.DeleteLink(requestContext(c), user.ID, c.Params("shortId")); err != nil {
		return h.ownerError(c, err, "failed to delete link")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandler) ownerError(c *fiber.Ctx, err error, logMsg string) error {
	switch {
	case errors.Is(err, repository.ErrLinkNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Link not found"})
	case errors.Is(err, service.ErrNotOwner):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Link belongs to another user"})
	case badInput(err):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		h.logger.Error(logMsg, zap.Error(err), zap.String("short_id", c.Params("shortId")))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}
}

func badInput(err error) bool {
	return errors.Is(err, service.ErrInvalidURL) ||
		errors.Is(err, access.ErrGateConflict) ||
		errors.Is(err, access.ErrEmptyAllowList) ||
		errors.Is(err, access.ErrBadMaxClicks)
}
