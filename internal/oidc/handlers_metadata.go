package oidc

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"cfszone_connect/magic_idp/internal/config"
)

// MetadataHandler serves the discovery document and the public key set.
// Endpoint URLs are derived from the request host so the same process can
// sit behind different external names.
type MetadataHandler struct {
	cfg  config.Config
	keys *KeyService
}

func NewMetadataHandler(cfg config.Config, keys *KeyService) *MetadataHandler {
	return &MetadataHandler{cfg: cfg, keys: keys}
}

func (h *MetadataHandler) HandleDiscovery(c *gin.Context) {
	base := h.cfg.BaseURL(c.Request)
	c.JSON(http.StatusOK, gin.H{
		"issuer":                                base,
		"authorization_endpoint":                fmt.Sprintf("%s/oidc/authorize", base),
		"token_endpoint":                        fmt.Sprintf("%s/oidc/token", base),
		"userinfo_endpoint":                     fmt.Sprintf("%s/oidc/userinfo", base),
		"jwks_uri":                              fmt.Sprintf("%s/oidc/jwks", base),
		"response_types_supported":              []string{"code"},
		"subject_types_supported":               []string{"public"},
		"id_token_signing_alg_values_supported": []string{"RS256"},
		"grant_types_supported":                 []string{"authorization_code"},
		"scopes_supported":                      []string{"openid", "profile", "email"},
		"token_endpoint_auth_methods_supported": []string{"client_secret_post"},
	})
}

func (h *MetadataHandler) HandleJWKS(c *gin.Context) {
	c.JSON(http.StatusOK, h.keys.JWKS())
}
