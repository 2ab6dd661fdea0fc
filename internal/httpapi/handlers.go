package httpapi

import (
	"context"
	"errors"
	"net/http"

	"bondbridge/internal/accounts"
	"bondbridge/internal/apperr"
	"bondbridge/internal/auth"
	"bondbridge/internal/chat"
	"bondbridge/internal/faultlog"
	"bondbridge/internal/session"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Sessions *session.Service
	Accounts *accounts.Service
	Chat     *chat.Service
	Faults   *faultlog.Service
	// EnsureSchema applies the database schema.
	EnsureSchema func(ctx context.Context) error
}

// --- Session ---

type signInRequest struct {
	Email    string `json:"email" binding:"required,notblank,email,max=256"`
	Password string `json:"password" binding:"required,notblank"`
	IsApp    bool   `json:"isApp"`
}

type refreshRequest struct {
	AccessToken  string `json:"AccessToken" binding:"required,notblank"`
	RefreshToken string `json:"RefreshToken" binding:"required,notblank"`
}

type userIDRequest struct {
	UserID string `json:"userId" binding:"required,notblank,uuid"`
}

func (h Handlers) SignIn(c *gin.Context) {
	var req signInRequest
	if !bindJSON(c, &req) {
		return
	}
	pair, err := h.Sessions.SignIn(c.Request.Context(), session.SignInRequest{
		Email:    req.Email,
		Password: req.Password,
		IsApp:    req.IsApp,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

func (h Handlers) RefreshToken(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req) {
		return
	}
	pair, err := h.Sessions.Refresh(c.Request.Context(), req.AccessToken, req.RefreshToken)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// SignOut clears the refresh token of userId. Requires verified claims.
func (h Handlers) SignOut(c *gin.Context) {
	claims, ok := auth.ClaimsFrom(c.Request.Context())
	if !ok {
		writeError(c, apperr.Unauthorized("missing bearer token"))
		return
	}
	var req userIDRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.Sessions.SignOut(c.Request.Context(), claims, req.UserID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "signed out"})
}

// --- User manager ---

type addRoleRequest struct {
	RoleName string `json:"roleName" binding:"required,notblank,max=64"`
}

type addUserRequest struct {
	Email    string `json:"email" binding:"required,notblank,email,max=256"`
	Password string `json:"password" binding:"required,notblank"`
}

type userRoleRequest struct {
	UserID string `json:"userId" binding:"required,notblank,uuid"`
	Role   string `json:"role" binding:"required,notblank"`
}

type roleRequest struct {
	Role string `json:"role" binding:"required,notblank"`
}

func (h Handlers) EnsureCreated(c *gin.Context) {
	if h.EnsureSchema == nil {
		writeError(c, apperr.Internal(errors.New("schema applier not configured")))
		return
	}
	if err := h.EnsureSchema(c.Request.Context()); err != nil {
		writeError(c, apperr.Internal(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "database schema is up to date"})
}

func (h Handlers) GetUsers(c *gin.Context) {
	users, err := h.Accounts.ListUsers(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h Handlers) AddRole(c *gin.Context) {
	var req addRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.Accounts.AddRole(c.Request.Context(), req.RoleName); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "role created"})
}

func (h Handlers) AddUser(c *gin.Context) {
	var req addUserRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.Accounts.AddUser(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h Handlers) AddRoleToUser(c *gin.Context) {
	var req userRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.Accounts.AddRoleToUser(c.Request.Context(), req.UserID, req.Role); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "role added to user"})
}

func (h Handlers) RemoveRoleFromUser(c *gin.Context) {
	var req userRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.Accounts.RemoveRoleFromUser(c.Request.Context(), req.UserID, req.Role); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "role removed from user"})
}

func (h Handlers) DeleteUser(c *gin.Context) {
	var req userIDRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.Accounts.DeleteUser(c.Request.Context(), req.UserID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

func (h Handlers) DeleteRole(c *gin.Context) {
	var req roleRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.Accounts.DeleteRole(c.Request.Context(), req.Role); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "role deleted"})
}

// --- Groups ---

func (h Handlers) GroupsByUserID(c *gin.Context) {
	groups, err := h.Chat.GroupsByUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		if errors.Is(err, chat.ErrInvalidArgument) {
			writeError(c, apperr.Validation("userId must be a valid UUID"))
			return
		}
		writeError(c, apperr.Internal(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": groups})
}

// --- Logs ---

func (h Handlers) LatestLogs(c *gin.Context) {
	entries, err := h.Faults.Latest(c.Request.Context())
	if err != nil {
		writeError(c, apperr.Internal(err))
		return
	}
	c.JSON(http.StatusOK, entries)
}
