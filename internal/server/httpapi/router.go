// Package httpapi exposes the vault services over HTTP using echo.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/server/auth"
	"github.com/dmitrijs2005/gophvault/internal/server/models"
	"github.com/dmitrijs2005/gophvault/internal/server/services"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AuthGateway is the subset of services.AuthService the HTTP layer needs.
type AuthGateway interface {
	Login(ctx context.Context, userName, password string) (*services.LoginResult, error)
	Register(ctx context.Context, userName, password, email, role string) (*models.User, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
	Authenticate(ctx context.Context, accessToken string) (*auth.Claims, error)
}

type PinGate interface {
	SetPin(ctx context.Context, userID, pin string) error
	AuthorizeReveal(ctx context.Context, userID, credentialID, pin string) (string, error)
}

type Vault interface {
	Create(ctx context.Context, userID string, in services.NewCredential) (*models.Credential, error)
	List(ctx context.Context, userID string) ([]*models.Credential, error)
	Share(ctx context.Context, ownerID, credentialID, targetUserName string, expiresAt time.Time) (*models.Sharing, error)
	AcceptShare(ctx context.Context, userID, accessToken string) (*models.Sharing, error)
	RevokeShare(ctx context.Context, userID, sharingID string) error
}

type Exporter interface {
	Export(ctx context.Context, userID string) (*services.ExportResult, error)
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Deps struct {
	Auth     AuthGateway
	Pins     PinGate
	Vault    Vault
	Exporter Exporter
	DB       Pinger
	Logger   logging.Logger
}

// NewRouter builds the echo instance with every route and middleware wired.
func NewRouter(d *Deps) *echo.Echo {
	logger := d.Logger.With("module", "http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)

	e.Use(
		middleware.RequestID(),
		Metrics(),
		RequestLogger(logger),
		middleware.Recover(),
		middleware.Secure(),
	)

	h := &handlers{d: d, logger: logger}

	e.GET("/health/live", h.live)
	e.GET("/health/ready", h.ready)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")

	api.POST("/auth/register", h.register)
	api.POST("/auth/login", h.login)
	api.POST("/auth/refresh", h.refresh)
	api.POST("/auth/logout", h.logout, RequireBearer())

	private := api.Group("", RequireAuth(d.Auth))
	private.POST("/passwords/generate", h.generatePassword)
	private.POST("/pin", h.setPin)
	private.POST("/credentials", h.createCredential)
	private.GET("/credentials", h.listCredentials)
	private.POST("/credentials/:id/reveal", h.reveal)
	private.POST("/credentials/:id/shares", h.share)
	private.POST("/shares/:token/accept", h.acceptShare)
	private.DELETE("/shares/:id", h.revokeShare)
	private.POST("/export", h.export)

	return e
}

type handlers struct {
	d      *Deps
	logger logging.Logger
}

func (h *handlers) live(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func (h *handlers) ready(c echo.Context) error {
	if h.d.DB == nil {
		return c.NoContent(http.StatusOK)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := h.d.DB.PingContext(ctx); err != nil {
		h.logger.Warn(ctx, "readiness check failed", "error", err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"message": "database unavailable"})
	}
	return c.NoContent(http.StatusOK)
}
