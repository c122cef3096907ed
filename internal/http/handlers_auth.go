package http

import (
	"net/http"

	"expensetracker/internal/auth"
	"expensetracker/internal/core"

	"github.com/gin-gonic/gin"
)

type meResponse struct {
	OwnerID  string    `json:"ownerId"`
	Role     core.Role `json:"role"`
	Email    string    `json:"email,omitempty"`
	Username string    `json:"username,omitempty"`
}

func (h *handlers) register(c *gin.Context) {
	var in auth.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, bindError(err))
		return
	}

	session, err := h.deps.Auth.Register(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (h *handlers) login(c *gin.Context) {
	var in auth.LoginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, bindError(err))
		return
	}

	session, err := h.deps.Auth.Login(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *handlers) me(c *gin.Context) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		writeError(c, core.ErrUnauthorized)
		return
	}
	c.JSON(http.StatusOK, meResponse{
		OwnerID:  claims.UserID,
		Role:     claims.Role,
		Email:    claims.Email,
		Username: claims.Username,
	})
}
