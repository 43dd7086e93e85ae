package oidc

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type UserInfoHandler struct {
	service *Service
}

func NewUserInfoHandler(service *Service) *UserInfoHandler {
	return &UserInfoHandler{service: service}
}

func (h *UserInfoHandler) Handle(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		writeOAuthError(c, http.StatusBadRequest, "invalid_request", "missing Authorization header")
		return
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || parts[0] != "Bearer" {
		writeOAuthError(c, http.StatusBadRequest, "invalid_request", "malformed Authorization header")
		return
	}

	user, ok, err := h.service.ResolveAuth(c.Request.Context(), parts[1])
	if err != nil {
		serverError(c, "resolve access token", err)
		return
	}
	if !ok {
		writeOAuthError(c, http.StatusUnauthorized, "invalid_token", "access token is invalid")
		return
	}

	c.JSON(http.StatusOK, UserInfoResponse{
		User:              user.Email,
		Email:             user.Email,
		PreferredUsername: user.PreferredUsername(),
	})
}
