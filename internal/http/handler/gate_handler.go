package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/lockyolinks/lockyolinks/internal/app/access"
	"github.com/lockyolinks/lockyolinks/internal/app/repository"
	"github.com/lockyolinks/lockyolinks/internal/app/service"
	"github.com/lockyolinks/lockyolinks/internal/http/middleware"
	infraprom "github.com/lockyolinks/lockyolinks/internal/infra/prometheus"
	"go.uber.org/zap"
)

// GateDeps groups dependencies required by the gate verification endpoints.
type GateDeps struct {
	Logger *zap.Logger
	Access *service.AccessService
	Gates  *service.GateService
}

// GateHandler implements the gate verification and status inspection API.
type GateHandler struct {
	logger *zap.Logger
	access *service.AccessService
	gates  *service.GateService
}

// NewGateHandler creates a gate handler with the provided dependencies.
func NewGateHandler(deps GateDeps) *GateHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GateHandler{
		logger: logger,
		access: deps.Access,
		gates:  deps.Gates,
	}
}

// Register wires the gate routes onto the provided router.
func (h *GateHandler) Register(router fiber.Router) {
	links := router.Group("/api/links")
	{
		links.Get("/:shortId", h.Status)
		links.Post("/:shortId/access", h.Grant)
		links.Post("/:shortId/verify-password", h.VerifyPassword)
		links.Post("/:shortId/verify-token", h.VerifyToken)
		links.Post("/:shortId/verify-invite", h.VerifyInvite)
	}
}

// Status handles GET /api/links/:shortId. It exposes only what the gate UI
// needs: the computed status and which credential gates apply. The original
// URL and any password material never leave this endpoint.
func (h *GateHandler) Status(c *fiber.Ctx) error {
	link, status, err := h.access.Resolve(requestContext(c), c.Params("shortId"))
	if err != nil {
		return h.resolveError(c, err)
	}

	return c.JSON(fiber.Map{
		"id":           link.ID,
		"shortId":      link.ShortID,
		"title":        link.Title,
		"status":       string(status),
		"hasPassword":  link.HasPassword,
		"isInviteOnly": link.IsInviteOnly,
	})
}

// Grant handles POST /api/links/:shortId/access: the JSON grant path for
// ungated links. Links with a credential gate answer 401 and never reveal
// the destination.
func (h *GateHandler) Grant(c *fiber.Ctx) error {
	var req struct {
		Action string `json:"action"`
	}
	if err := c.BodyParser(&req); err != nil || req.Action != "access" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid action",
		})
	}

	ctx := requestContext(c)
	link, status, err := h.access.Resolve(ctx, c.Params("shortId"))
	if err != nil {
		return h.resolveError(c, err)
	}

	if status.Terminal() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": status.Reason()})
	}
	if link.HasPassword || link.IsInviteOnly {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "This link requires authentication",
		})
	}

	meta := service.RequestMeta{IP: c.IP(), UserAgent: c.Get("User-Agent")}
	if err := h.access.RecordAccess(ctx, link, meta); err != nil {
		if errors.Is(err, repository.ErrAccessClosed) {
			return h.accessClosed(c, ctx, link.ShortID)
		}
		return err
	}

	return c.JSON(fiber.Map{
		"originalUrl": link.OriginalURL,
		"message":     "Access granted",
	})
}

// VerifyPassword handles POST /api/links/:shortId/verify-password. On
// success it issues an access token, counts the click, and sets the
// session-scoped cookie so the browser can re-enter without re-prompting.
func (h *GateHandler) VerifyPassword(c *fiber.Ctx) error {
	var req struct {
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	ctx := requestContext(c)
	link, status, err := h.access.Resolve(ctx, c.Params("shortId"))
	if err != nil {
		return h.resolveError(c, err)
	}

	if status.Terminal() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": status.Reason()})
	}

	if err := h.gates.VerifyPassword(link, req.Password); err != nil {
		if errors.Is(err, service.ErrNotPasswordProtected) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		infraprom.GateDenialsTotal.WithLabelValues("password").Inc()
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	meta := service.RequestMeta{IP: c.IP(), UserAgent: c.Get("User-Agent")}
	token, err := h.access.IssueAccessToken(ctx, link, meta)
	if err != nil {
		if errors.Is(err, repository.ErrAccessClosed) {
			return h.accessClosed(c, ctx, link.ShortID)
		}
		h.logger.Error("failed to issue access token", zap.Error(err), zap.String("short_id", link.ShortID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}

	// Session cookie: no explicit expiry, the server-side token bound wins.
	c.Cookie(&fiber.Cookie{
		Name:     accessCookieName(link.ShortID),
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   c.Protocol() == "https",
		SameSite: fiber.CookieSameSiteStrictMode,
	})

	return c.JSON(fiber.Map{
		"message":     "Password verified successfully",
		"accessToken": token,
	})
}

// VerifyToken handles POST /api/links/:shortId/verify-token: validity check
// for a previously issued access token.
func (h *GateHandler) VerifyToken(c *fiber.Ctx) error {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.BodyParser(&req); err != nil || req.Token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Access token is required",
		})
	}

	ctx := requestContext(c)
	link, status, err := h.access.Resolve(ctx, c.Params("shortId"))
	if err != nil {
		return h.resolveError(c, err)
	}

	if status.Terminal() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": status.Reason()})
	}

	if err := h.gates.VerifyToken(ctx, link, req.Token); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrTokenExpired):
			infraprom.GateDenialsTotal.WithLabelValues("token").Inc()
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
		default:
			h.logger.Error("failed to verify access token", zap.Error(err), zap.String("short_id", link.ShortID))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}
	}

	return c.JSON(fiber.Map{
		"message": "Access token verified successfully",
		"valid":   true,
	})
}

// VerifyInvite handles POST /api/links/:shortId/verify-invite: allow-list
// membership check for the authenticated caller. Anonymous callers are told
// to sign in, which is not a denial.
func (h *GateHandler) VerifyInvite(c *fiber.Ctx) error {
	ctx := requestContext(c)
	link, status, err := h.access.Resolve(ctx, c.Params("shortId"))
	if err != nil {
		return h.resolveError(c, err)
	}

	if status.Terminal() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": status.Reason()})
	}

	user, authErr := middleware.CurrentUser(c)
	if err := h.gates.VerifyInvite(link, user, authErr); err != nil {
		switch {
		case errors.Is(err, service.ErrAuthenticationRequired):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":          "authentication required",
				"signInRequired": true,
			})
		case errors.Is(err, service.ErrNotAuthorized):
			infraprom.GateDenialsTotal.WithLabelValues("invite").Inc()
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, service.ErrNotInviteOnly):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		default:
			h.logger.Error("invite verification failed", zap.Error(err), zap.String("short_id", link.ShortID))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}
	}

	return c.JSON(fiber.Map{
		"message": "Access granted",
		"valid":   true,
	})
}

// accessClosed answers a refused mutation: the link turned terminal between
// evaluation and the guarded increment. Re-resolving yields the actual reason
// (expired, capped, disabled or deleted) instead of guessing.
func (h *GateHandler) accessClosed(c *fiber.Ctx, ctx context.Context, shortID string) error {
	_, status, err := h.access.Resolve(ctx, shortID)
	if err != nil {
		return h.resolveError(c, err)
	}

	reason := status.Reason()
	if reason == "" {
		// A stale cached record can still read as open; the refusal itself
		// proves the cap was the binding constraint.
		reason = access.StatusMaxClicksReached.Reason()
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": reason})
}

func (h *GateHandler) resolveError(c *fiber.Ctx, err error) error {
	if errors.Is(err, repository.ErrLinkNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Link not found"})
	}
	h.logger.Error("failed to resolve link", zap.Error(err), zap.String("short_id", c.Params("shortId")))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Internal server error",
	})
}
