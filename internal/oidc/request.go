package oidc

import (
	"net/url"
)

// AuthorizeRequest is the OIDC request descriptor. It round-trips through
// two representations: query/form parameters on the wire, and a url-encoded
// string stashed in the cookie session across the login redirect.
type AuthorizeRequest struct {
	Scope        string `form:"scope"`
	ResponseType string `form:"response_type"`
	ClientID     string `form:"client_id"`
	RedirectURI  string `form:"redirect_uri"`
	State        string `form:"state"`
}

// Encode serializes the request as a query string, used both for the
// /login redirect and for the session holding area.
func (r AuthorizeRequest) Encode() string {
	values := url.Values{}
	values.Set("scope", r.Scope)
	values.Set("response_type", r.ResponseType)
	values.Set("client_id", r.ClientID)
	values.Set("redirect_uri", r.RedirectURI)
	if r.State != "" {
		values.Set("state", r.State)
	}
	return values.Encode()
}

func DecodeAuthorizeRequest(encoded string) (AuthorizeRequest, error) {
	values, err := url.ParseQuery(encoded)
	if err != nil {
		return AuthorizeRequest{}, err
	}
	return AuthorizeRequest{
		Scope:        values.Get("scope"),
		ResponseType: values.Get("response_type"),
		ClientID:     values.Get("client_id"),
		RedirectURI:  values.Get("redirect_uri"),
		State:        values.Get("state"),
	}, nil
}
