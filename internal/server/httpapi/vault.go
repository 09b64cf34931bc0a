package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/forge"
	"github.com/dmitrijs2005/gophvault/internal/server/models"
	"github.com/dmitrijs2005/gophvault/internal/server/services"
	"github.com/labstack/echo/v4"
)

// generateRequest uses pointers so absent fields fall back to
// forge.DefaultOptions rather than to false/0.
type generateRequest struct {
	Length           *int  `json:"length"`
	IncludeLowercase *bool `json:"includeLowercase"`
	IncludeUppercase *bool `json:"includeUppercase"`
	IncludeNumbers   *bool `json:"includeNumbers"`
	IncludeSpecial   *bool `json:"includeSpecial"`
}

func (r *generateRequest) options() forge.Options {
	o := forge.DefaultOptions()
	if r == nil {
		return o
	}
	if r.Length != nil {
		o.Length = *r.Length
	}
	if r.IncludeLowercase != nil {
		o.UseLower = *r.IncludeLowercase
	}
	if r.IncludeUppercase != nil {
		o.UseUpper = *r.IncludeUppercase
	}
	if r.IncludeNumbers != nil {
		o.UseDigits = *r.IncludeNumbers
	}
	if r.IncludeSpecial != nil {
		o.UseSymbols = *r.IncludeSpecial
	}
	return o
}

type generateResponse struct {
	Password string `json:"password"`
	Strength int    `json:"strength"`
}

type pinRequest struct {
	Pin string `json:"pin"`
}

type revealResponse struct {
	Password string `json:"password"`
}

type credentialRequest struct {
	Name       string           `json:"name"`
	ServiceURL string           `json:"serviceUrl"`
	Notes      string           `json:"notes"`
	CategoryID *string          `json:"categoryId"`
	Password   string           `json:"password"`
	Generate   *generateRequest `json:"generate"`
}

// credentialResponse carries metadata only, never the secret.
type credentialResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	ServiceURL       string    `json:"serviceUrl,omitempty"`
	Notes            string    `json:"notes,omitempty"`
	CategoryID       *string   `json:"categoryId,omitempty"`
	Length           int       `json:"length"`
	IncludeLowercase bool      `json:"includeLowercase"`
	IncludeUppercase bool      `json:"includeUppercase"`
	IncludeNumbers   bool      `json:"includeNumbers"`
	IncludeSpecial   bool      `json:"includeSpecial"`
	Strength         int       `json:"strength"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func toCredentialResponse(c *models.Credential) credentialResponse {
	return credentialResponse{
		ID:               c.ID,
		Name:             c.Name,
		ServiceURL:       c.ServiceURL,
		Notes:            c.Notes,
		CategoryID:       c.CategoryID,
		Length:           c.Length,
		IncludeLowercase: c.UseLower,
		IncludeUppercase: c.UseUpper,
		IncludeNumbers:   c.UseDigits,
		IncludeSpecial:   c.UseSymbols,
		Strength:         c.Strength,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

type shareRequest struct {
	Username       string    `json:"username"`
	ExpirationDate time.Time `json:"expirationDate"`
}

type shareResponse struct {
	ID             string    `json:"id"`
	CredentialID   string    `json:"credentialId"`
	OwnerID        string    `json:"ownerId"`
	TargetID       string    `json:"targetId"`
	ExpirationDate time.Time `json:"expirationDate"`
	AccessToken    string    `json:"accessToken"`
	Accepted       bool      `json:"accepted"`
}

func toShareResponse(s *models.Sharing) shareResponse {
	return shareResponse{
		ID:             s.ID,
		CredentialID:   s.CredentialID,
		OwnerID:        s.OwnerID,
		TargetID:       s.TargetID,
		ExpirationDate: s.ExpiresAt,
		AccessToken:    s.AccessToken,
		Accepted:       s.Accepted,
	}
}

type exportResponse struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

func (h *handlers) generatePassword(c echo.Context) error {
	var req generateRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	pw, err := forge.Generate(req.options())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, generateResponse{Password: pw, Strength: forge.EvaluateStrength(pw)})
}

func (h *handlers) setPin(c echo.Context) error {
	var req pinRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.d.Pins.SetPin(c.Request().Context(), claimsFrom(c).UserID, req.Pin); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "PIN set"})
}

func (h *handlers) reveal(c echo.Context) error {
	var req pinRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	pw, err := h.d.Pins.AuthorizeReveal(c.Request().Context(), claimsFrom(c).UserID, c.Param("id"), req.Pin)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, revealResponse{Password: pw})
}

func (h *handlers) createCredential(c echo.Context) error {
	var req credentialRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	in := services.NewCredential{
		Name:       req.Name,
		ServiceURL: req.ServiceURL,
		Notes:      req.Notes,
		CategoryID: req.CategoryID,
		Password:   req.Password,
	}
	if req.Generate != nil {
		o := req.Generate.options()
		in.Generate = &o
	}

	cred, err := h.d.Vault.Create(c.Request().Context(), claimsFrom(c).UserID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toCredentialResponse(cred))
}

func (h *handlers) listCredentials(c echo.Context) error {
	list, err := h.d.Vault.List(c.Request().Context(), claimsFrom(c).UserID)
	if err != nil {
		return err
	}

	out := make([]credentialResponse, 0, len(list))
	for _, cred := range list {
		out = append(out, toCredentialResponse(cred))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *handlers) share(c echo.Context) error {
	var req shareRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.Username == "" || req.ExpirationDate.IsZero() {
		return echo.NewHTTPError(http.StatusBadRequest, "username and expirationDate are required")
	}

	s, err := h.d.Vault.Share(c.Request().Context(), claimsFrom(c).UserID, c.Param("id"), req.Username, req.ExpirationDate)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toShareResponse(s))
}

func (h *handlers) acceptShare(c echo.Context) error {
	s, err := h.d.Vault.AcceptShare(c.Request().Context(), claimsFrom(c).UserID, c.Param("token"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toShareResponse(s))
}

func (h *handlers) revokeShare(c echo.Context) error {
	if err := h.d.Vault.RevokeShare(c.Request().Context(), claimsFrom(c).UserID, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handlers) export(c echo.Context) error {
	res, err := h.d.Exporter.Export(c.Request().Context(), claimsFrom(c).UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, exportResponse{URL: res.URL, Key: res.Key})
}
