package oidc

// TokenResponse is the token-endpoint body. RefreshToken is always nil and
// always serialized: refresh tokens are not issued, and clients get an
// explicit null rather than a missing field.
type TokenResponse struct {
	AccessToken  string  `json:"access_token"`
	TokenType    string  `json:"token_type"`
	ExpiresIn    int64   `json:"expires_in"`
	IDToken      string  `json:"id_token"`
	RefreshToken *string `json:"refresh_token"`
}

type UserInfoResponse struct {
	User              string `json:"user"`
	Email             string `json:"email"`
	PreferredUsername string `json:"preferred_username"`
}

type OAuthError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}
