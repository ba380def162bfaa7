package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/lockyolinks/lockyolinks/internal/app/access"
	"github.com/lockyolinks/lockyolinks/internal/app/model"
	"github.com/lockyolinks/lockyolinks/internal/app/repository"
	"github.com/lockyolinks/lockyolinks/internal/app/service"
	"github.com/lockyolinks/lockyolinks/internal/http/middleware"
	httputil "github.com/lockyolinks/lockyolinks/internal/http/util"
	"github.com/lockyolinks/lockyolinks/internal/http/view"
	infraprom "github.com/lockyolinks/lockyolinks/internal/infra/prometheus"
	"go.uber.org/zap"
)

const confirmTokenTTL = 5 * time.Minute

// accessCookieName returns the per-link session cookie holding the access token.
func accessCookieName(shortID string) string {
	return "access_token_" + shortID
}

// RedirectDeps groups dependencies required by the public resolution handlers.
type RedirectDeps struct {
	Logger    *zap.Logger
	Access    *service.AccessService
	Gates     *service.GateService
	Secret    []byte
	SignInURL string
}

// RedirectHandler serves the public resolution entry, the confirmation step
// for informational gates, and the final dispatch route.
type RedirectHandler struct {
	logger    *zap.Logger
	access    *service.AccessService
	gates     *service.GateService
	confirm   *httputil.ConfirmSigner
	signInURL string
}

// NewRedirectHandler creates a resolution handler with the provided dependencies.
func NewRedirectHandler(deps RedirectDeps) *RedirectHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	signIn := deps.SignInURL
	if signIn == "" {
		signIn = "/login"
	}
	return &RedirectHandler{
		logger:    logger,
		access:    deps.Access,
		gates:     deps.Gates,
		confirm:   httputil.NewConfirmSigner(deps.Secret, confirmTokenTTL),
		signInURL: signIn,
	}
}

// Register wires resolution routes onto the provided router. The wildcard
// short-id route must be registered after every fixed route.
func (h *RedirectHandler) Register(router fiber.Router) {
	router.Get("/", h.Health)
	router.Get("/health", h.Health)
	router.Get("/api/redirect/:shortId", h.Dispatch)
	router.Get("/:shortId", h.Resolve)
	router.Get("/:shortId/confirm/:token", h.Confirm)
}

// Health is a simple root endpoint so we know the service is running.
func (h *RedirectHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "lockyolinks",
		"status":  "ok",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Resolve handles GET /:shortId: it evaluates the link and either redirects,
// renders the applicable gate page, or renders the terminal page.
func (h *RedirectHandler) Resolve(c *fiber.Ctx) error {
	shortID := c.Params("shortId")
	ctx := requestContext(c)

	link, status, loadErr := h.loadLink(ctx, shortID)
	if loadErr != nil {
		return c.Status(loadErr.StatusCode).JSON(fiber.Map{"error": loadErr.Message})
	}
	infraprom.ResolutionsTotal.WithLabelValues(string(status)).Inc()

	if status.Terminal() {
		return h.renderTerminal(c, link, status)
	}

	switch status {
	case access.StatusOpen:
		return h.grantAndRedirect(c, ctx, link)

	case access.StatusInviteOnly:
		return h.resolveInviteOnly(c, ctx, link)

	case access.StatusPasswordProtected, access.StatusRestricted:
		return h.renderGate(c, link, status)

	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}
}

// Confirm handles the continue link of the informational gate page. The
// token is a UX confirmation, not a credential: it only proves the info page
// was rendered for this short id.
func (h *RedirectHandler) Confirm(c *fiber.Ctx) error {
	shortID := c.Params("shortId")
	token := c.Params("token")
	ctx := requestContext(c)

	if err := h.confirm.Validate(shortID, token); err != nil {
		if errors.Is(err, httputil.ErrInvalidConfirmToken) {
			// Stale confirmation: send the visitor back through resolution.
			return c.Redirect("/"+shortID, fiber.StatusFound)
		}
		h.logger.Error("failed to validate confirmation token", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}

	link, status, loadErr := h.loadLink(ctx, shortID)
	if loadErr != nil {
		return c.Status(loadErr.StatusCode).JSON(fiber.Map{"error": loadErr.Message})
	}
	if status.Terminal() {
		return h.renderTerminal(c, link, status)
	}
	if status == access.StatusInviteOnly || status == access.StatusPasswordProtected {
		return h.renderGate(c, link, status)
	}
	if status == access.StatusRestricted && link.HasPassword {
		return h.renderGate(c, link, status)
	}

	return h.grantAndRedirect(c, ctx, link)
}

// Dispatch handles GET /api/redirect/:shortId, the terminal step of every
// granted flow. Gates are re-checked server-side: an invite-only link needs
// an authorized caller, a password-gated link needs the session's access
// token. The redirect is a 307 so the method and body survive and
// intermediaries do not cache the mapping.
func (h *RedirectHandler) Dispatch(c *fiber.Ctx) error {
	shortID := c.Params("shortId")
	ctx := requestContext(c)

	link, status, loadErr := h.loadLink(ctx, shortID)
	if loadErr != nil {
		return c.Status(loadErr.StatusCode).JSON(fiber.Map{"error": loadErr.Message})
	}

	if status.Terminal() {
		return c.Status(fiber.StatusBadRequest).SendString(status.Reason())
	}

	switch status {
	case access.StatusInviteOnly:
		user, authErr := middleware.CurrentUser(c)
		if gateErr := h.gates.VerifyInvite(link, user, authErr); gateErr != nil {
			if errors.Is(gateErr, service.ErrAuthenticationRequired) {
				return c.Redirect(h.signInURL+"?redirect=/"+link.ShortID, fiber.StatusFound)
			}
			infraprom.GateDenialsTotal.WithLabelValues("invite").Inc()
			return c.Status(fiber.StatusForbidden).SendString(gateErr.Error())
		}
		return h.grantAndRedirect(c, ctx, link)

	case access.StatusPasswordProtected:
		return h.dispatchWithToken(c, ctx, link)

	case access.StatusRestricted:
		if link.HasPassword {
			return h.dispatchWithToken(c, ctx, link)
		}
		// Informational gate only: no credential is required here.
		return h.grantAndRedirect(c, ctx, link)

	default:
		return h.grantAndRedirect(c, ctx, link)
	}
}

// dispatchWithToken redirects a password-gated link when the session carries
// a valid access token. The click was already counted when the token was
// issued, so no further mutation happens here.
func (h *RedirectHandler) dispatchWithToken(c *fiber.Ctx, ctx context.Context, link *model.Link) error {
	token := c.Cookies(accessCookieName(link.ShortID))
	if token == "" {
		return h.renderGate(c, link, access.Evaluate(link, time.Now()))
	}

	if err := h.gates.VerifyToken(ctx, link, token); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrTokenExpired):
			infraprom.GateDenialsTotal.WithLabelValues("token").Inc()
			return h.renderGate(c, link, access.Evaluate(link, time.Now()))
		default:
			h.logger.Error("failed to verify access token", zap.Error(err), zap.String("short_id", link.ShortID))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}
	}

	infraprom.RedirectsTotal.Inc()
	return c.Redirect(link.OriginalURL, fiber.StatusTemporaryRedirect)
}

// grantAndRedirect counts the access and issues the 307. The counter update
// is re-validated inside the store; any other write failure is already
// swallowed by the service so the redirect always proceeds.
func (h *RedirectHandler) grantAndRedirect(c *fiber.Ctx, ctx context.Context, link *model.Link) error {
	meta := service.RequestMeta{IP: c.IP(), UserAgent: c.Get("User-Agent")}
	if err := h.access.RecordAccess(ctx, link, meta); err != nil {
		if errors.Is(err, repository.ErrAccessClosed) {
			// The link closed between evaluation and mutation.
			fresh, status, loadErr := h.loadLink(ctx, link.ShortID)
			if loadErr != nil {
				return c.Status(loadErr.StatusCode).JSON(fiber.Map{"error": loadErr.Message})
			}
			return h.renderTerminal(c, fresh, status)
		}
		return err
	}

	infraprom.RedirectsTotal.Inc()
	return c.Redirect(link.OriginalURL, fiber.StatusTemporaryRedirect)
}

func (h *RedirectHandler) resolveInviteOnly(c *fiber.Ctx, ctx context.Context, link *model.Link) error {
	user, authErr := middleware.CurrentUser(c)
	gateErr := h.gates.VerifyInvite(link, user, authErr)

	switch {
	case gateErr == nil:
		return h.grantAndRedirect(c, ctx, link)
	case errors.Is(gateErr, service.ErrAuthenticationRequired):
		return h.renderInvitePage(c, link, true)
	case errors.Is(gateErr, service.ErrNotAuthorized):
		infraprom.GateDenialsTotal.WithLabelValues("invite").Inc()
		return c.Status(fiber.StatusForbidden).SendString(gateErr.Error())
	default:
		h.logger.Error("invite verification failed", zap.Error(gateErr), zap.String("short_id", link.ShortID))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}
}

func (h *RedirectHandler) renderInvitePage(c *fiber.Ctx, link *model.Link, needsSignIn bool) error {
	data := view.GatePageData{
		Title:      link.Title,
		ShortID:    link.ShortID,
		InviteOnly: true,
	}
	if needsSignIn {
		data.SignInURL = h.signInURL + "?redirect=/" + link.ShortID
	} else {
		data.ContinueURL = "/api/redirect/" + link.ShortID
	}
	return h.sendPage(c, fiber.StatusOK, data)
}

func (h *RedirectHandler) renderGate(c *fiber.Ctx, link *model.Link, status access.Status) error {
	data := view.GatePageData{
		Title:       link.Title,
		ShortID:     link.ShortID,
		Status:      string(status),
		HasPassword: link.HasPassword,
		ExpiresAt:   link.ExpiresAt,
		MaxClicks:   link.MaxClicks,
		ClickCount:  link.ClickCount,
	}

	if link.HasPassword {
		data.VerifyURL = fmt.Sprintf("/api/links/%s/verify-password", link.ShortID)
	} else {
		token, err := h.confirm.Issue(link.ShortID)
		if err != nil {
			h.logger.Error("failed to issue confirmation token", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}
		data.ContinueURL = fmt.Sprintf("/%s/confirm/%s", link.ShortID, token)
	}

	return h.sendPage(c, fiber.StatusOK, data)
}

func (h *RedirectHandler) renderTerminal(c *fiber.Ctx, link *model.Link, status access.Status) error {
	data := view.GatePageData{
		Title:   link.Title,
		ShortID: link.ShortID,
		Status:  string(status),
		Reason:  status.Reason(),
	}
	return h.sendPage(c, fiber.StatusBadRequest, data)
}

func (h *RedirectHandler) sendPage(c *fiber.Ctx, statusCode int, data view.GatePageData) error {
	html, err := view.RenderGatePage(data)
	if err != nil {
		h.logger.Error("failed to render gate page", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}
	return c.Status(statusCode).Type("html", "utf-8").SendString(html)
}

type linkLoadError struct {
	StatusCode int
	Message    string
}

// loadLink resolves the short id, mapping not-found and store failures to
// the response the caller should write.
func (h *RedirectHandler) loadLink(ctx context.Context, shortID string) (*model.Link, access.Status, *linkLoadError) {
	link, status, err := h.access.Resolve(ctx, shortID)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, "", &linkLoadError{
				StatusCode: fiber.StatusNotFound,
				Message:    "Link not found",
			}
		}
		h.logger.Error("failed to resolve link", zap.Error(err), zap.String("short_id", shortID))
		return nil, "", &linkLoadError{
			StatusCode: fiber.StatusInternalServerError,
			Message:    "Internal server error",
		}
	}
	return link, status, nil
}

func requestContext(c *fiber.Ctx) context.Context {
	if ctx := c.UserContext(); ctx != nil {
		return ctx
	}
	return context.Background()
}
