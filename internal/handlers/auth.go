package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"diabcare/internal/apperrors"
	"diabcare/internal/middleware"
	"diabcare/internal/models"
	"diabcare/internal/repository"
	"diabcare/internal/utils"

	"github.com/gin-gonic/gin"
)

// --- Structs for Request Binding ---

type RegisterRequest struct {
	Username string `form:"username" json:"username" binding:"required,max=50"`
	Email    string `form:"email" json:"email" binding:"required,email,max=100"`
	Password string `form:"password" json:"password" binding:"required"`
}

type LoginRequest struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

// AuthHandler serves doctor registration, login and account removal.
type AuthHandler struct {
	doctors *repository.DoctorRepository
	auth    *middleware.Authenticator
	log     *slog.Logger
}

// NewAuthHandler returns an AuthHandler.
func NewAuthHandler(doctors *repository.DoctorRepository, auth *middleware.Authenticator, log *slog.Logger) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AuthHandler{doctors: doctors, auth: auth, log: log}
}

// Register creates a doctor account.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %w", apperrors.ErrValidation, err), "Invalid registration data")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	ctx := c.Request.Context()

	if err := h.available(c, "username", func() error {
		_, err := h.doctors.ByUsername(ctx, req.Username)
		return err
	}, "Ce nom d'utilisateur est déjà pris"); err != nil {
		return
	}
	if err := h.available(c, "email", func() error {
		_, err := h.doctors.ByEmail(ctx, req.Email)
		return err
	}, "Cette adresse email est déjà utilisée"); err != nil {
		return
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		respondError(c, err, "Invalid password")
		return
	}

	doctor := models.Doctor{Username: req.Username, Email: req.Email, Password: hashed}
	if err := h.doctors.Create(ctx, &doctor); err != nil {
		respondError(c, err, "Failed to create account")
		return
	}

	h.log.Info("doctor registered", "doctor_id", doctor.ID, "username", doctor.Username)
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Compte créé avec succès ! Vous pouvez maintenant vous connecter.",
		"data":    doctor,
	})
}

// available answers 409 when lookup finds a row. It returns a non-nil error
// when a response was written.
func (h *AuthHandler) available(c *gin.Context, field string, lookup func() error, taken string) error {
	err := lookup()
	switch {
	case err == nil:
		err = fmt.Errorf("%s already registered: %w", field, apperrors.ErrConflict)
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": taken, "field": field})
		return err
	case errors.Is(err, apperrors.ErrNotFound):
		return nil
	default:
		respondError(c, err, "Failed to create account")
		return err
	}
}

// Login checks credentials, starts a session and returns a bearer token.
func (h *AuthHandler) Login(c *gin.Context) {
	doctor, ok := h.authenticate(c)
	if !ok {
		return
	}
	if err := h.auth.StartSession(c, doctor); err != nil {
		respondError(c, err, "Failed to start session")
		return
	}
	token, expiresAt, err := h.auth.IssueToken(doctor)
	if err != nil {
		respondError(c, err, "Failed to issue token")
		return
	}

	h.log.Info("doctor logged in", "doctor_id", doctor.ID)
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      "Login successful",
		"access_token": token,
		"token_type":   "bearer",
		"expires_at":   expiresAt,
		"data":         doctor,
	})
}

// Token issues a bearer token without starting a session.
func (h *AuthHandler) Token(c *gin.Context) {
	doctor, ok := h.authenticate(c)
	if !ok {
		return
	}
	token, expiresAt, err := h.auth.IssueToken(doctor)
	if err != nil {
		respondError(c, err, "Failed to issue token")
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer", "expires_at": expiresAt})
}

func (h *AuthHandler) authenticate(c *gin.Context) (*models.Doctor, bool) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %w", apperrors.ErrValidation, err), "Invalid login data")
		return nil, false
	}

	doctor, err := h.doctors.ByUsername(c.Request.Context(), req.Username)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		respondError(c, err, "Login failed")
		return nil, false
	}
	hash := ""
	if doctor != nil {
		hash = doctor.Password
	}
	if !utils.CheckPasswordOrDummy(req.Password, hash) {
		h.log.Warn("failed login", "username", req.Username, "ip", c.ClientIP())
		respondError(c, fmt.Errorf("bad credentials: %w", apperrors.ErrUnauthorized), "Nom d'utilisateur ou mot de passe incorrect")
		return nil, false
	}
	return doctor, true
}

// Logout clears the session and sends the browser to the login page.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.auth.EndSession(c); err != nil {
		h.log.Warn("failed to clear session", "error", err)
	}
	c.Redirect(http.StatusSeeOther, "/login")
}

// DeleteAccount removes the logged-in doctor with all their patients.
func (h *AuthHandler) DeleteAccount(c *gin.Context) {
	principal := middleware.PrincipalFrom(c)
	if err := principal.Require(); err != nil {
		respondError(c, err, "Authentication required")
		return
	}
	if err := h.doctors.Delete(c.Request.Context(), principal.DoctorID); err != nil {
		respondError(c, err, "Failed to delete account")
		return
	}
	if err := h.auth.EndSession(c); err != nil {
		h.log.Warn("failed to clear session", "error", err)
	}

	h.log.Info("doctor account deleted", "doctor_id", principal.DoctorID)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Account deleted"})
}
