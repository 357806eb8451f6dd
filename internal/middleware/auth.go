package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"diabcare/internal/apperrors"
	"diabcare/internal/auth"
	"diabcare/internal/models"
	"diabcare/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
)

// SessionName is the cookie holding the server-side login session.
const SessionName = "diabcare_session"

const (
	principalKey      = "principal"
	sessionDoctorID   = "doctor_id"
	sessionUsername   = "username"
	sessionMaxAgeSecs = 8 * 60 * 60
)

// DoctorLookup finds a doctor by ID.
type DoctorLookup interface {
	ByID(ctx context.Context, id uint) (*models.Doctor, error)
}

// Authenticator resolves the logged-in doctor from a bearer token or a
// session cookie.
type Authenticator struct {
	tokens  *utils.TokenIssuer
	store   sessions.Store
	doctors DoctorLookup
}

// NewAuthenticator builds an Authenticator.
func NewAuthenticator(tokens *utils.TokenIssuer, store sessions.Store, doctors DoctorLookup) *Authenticator {
	return &Authenticator{tokens: tokens, store: store, doctors: doctors}
}

// NewCookieStore returns the session store used for browser logins.
func NewCookieStore(secret string, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAgeSecs,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// RequireDoctor rejects requests without a valid doctor. API routes get a
// 401 JSON answer; browser routes (redirect true) are sent to /login. A
// failed doctor lookup is not an authentication failure and is answered
// with the status of its cause on both kinds of route.
func (a *Authenticator) RequireDoctor(redirect bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := a.resolve(c)
		if err != nil && !errors.Is(err, apperrors.ErrUnauthorized) {
			// The doctor could not be looked up; the credentials may be fine.
			_ = c.Error(err)
			body := gin.H{"success": false, "message": "Could not verify credentials", "details": err.Error()}
			if apperrors.Retryable(err) {
				body["retryable"] = true
			}
			c.AbortWithStatusJSON(apperrors.HTTPStatus(err), body)
			return
		}
		if err != nil {
			if redirect {
				c.Redirect(http.StatusSeeOther, "/login")
				c.Abort()
				return
			}
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Authentication required", "details": err.Error()})
			return
		}
		c.Set(principalKey, principal)
		c.Next()
	}
}

// PrincipalFrom returns the doctor set by RequireDoctor, or the anonymous
// principal.
func PrincipalFrom(c *gin.Context) auth.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(auth.Principal); ok {
			return p
		}
	}
	return auth.Principal{}
}

func (a *Authenticator) resolve(c *gin.Context) (auth.Principal, error) {
	if header := c.GetHeader("Authorization"); header != "" {
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return auth.Principal{}, fmt.Errorf("malformed authorization header: %w", apperrors.ErrUnauthorized)
		}
		claims, err := a.tokens.Parse(token)
		if err != nil {
			return auth.Principal{}, err
		}
		return a.confirm(c.Request.Context(), claims.DoctorID, claims.Subject)
	}

	session, err := a.store.Get(c.Request, SessionName)
	if err != nil {
		return auth.Principal{}, fmt.Errorf("invalid session: %w", apperrors.ErrUnauthorized)
	}
	id, ok := session.Values[sessionDoctorID].(uint)
	if !ok || id == 0 {
		return auth.Principal{}, fmt.Errorf("no session: %w", apperrors.ErrUnauthorized)
	}
	username, _ := session.Values[sessionUsername].(string)
	return a.confirm(c.Request.Context(), id, username)
}

// confirm checks the doctor still exists; a deleted account invalidates
// outstanding tokens and sessions.
func (a *Authenticator) confirm(ctx context.Context, id uint, username string) (auth.Principal, error) {
	doctor, err := a.doctors.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return auth.Principal{}, fmt.Errorf("doctor %d no longer exists: %w", id, apperrors.ErrUnauthorized)
		}
		return auth.Principal{}, err
	}
	if username != "" && doctor.Username != username {
		return auth.Principal{}, fmt.Errorf("credential does not match doctor %d: %w", id, apperrors.ErrUnauthorized)
	}
	return auth.Principal{DoctorID: doctor.ID, Username: doctor.Username}, nil
}

// StartSession stores the doctor in the session cookie.
func (a *Authenticator) StartSession(c *gin.Context, doctor *models.Doctor) error {
	session, _ := a.store.Get(c.Request, SessionName)
	session.Values[sessionDoctorID] = doctor.ID
	session.Values[sessionUsername] = doctor.Username
	return session.Save(c.Request, c.Writer)
}

// EndSession clears the session cookie.
func (a *Authenticator) EndSession(c *gin.Context) error {
	session, _ := a.store.Get(c.Request, SessionName)
	session.Values = map[any]any{}
	session.Options.MaxAge = -1
	return session.Save(c.Request, c.Writer)
}

// IssueToken signs a bearer token for the doctor.
func (a *Authenticator) IssueToken(doctor *models.Doctor) (string, int64, error) {
	token, exp, err := a.tokens.Issue(doctor.ID, doctor.Username)
	if err != nil {
		return "", 0, err
	}
	return token, exp.Unix(), nil
}
