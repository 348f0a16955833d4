package authsdk

import (
	"context"
	"net/http"
)

// GetUserInfo retrieves the OpenID Connect claims for the session's user.
// Requires: openid scope
// Automatically refreshes the access token if expired.
func (s *Session) GetUserInfo(ctx context.Context) (*UserInfoResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/oauth/userinfo", nil, "openid")
	if err != nil {
		return nil, err
	}

	var userInfo UserInfoResponse
	if err := decodeJSON(resp, &userInfo, http.StatusOK); err != nil {
		return nil, err
	}

	return &userInfo, nil
}

// EnrollFace adds another face embedding for the session's user.
func (s *Session) EnrollFace(ctx context.Context, req EnrollRequest) error {
	return s.enroll(ctx, "/account/face/enroll", req)
}

// ReenrollFace replaces every active embedding of the session's user with
// one built from req.
func (s *Session) ReenrollFace(ctx context.Context, req EnrollRequest) error {
	return s.enroll(ctx, "/account/face/reenroll", req)
}

func (s *Session) enroll(ctx context.Context, path string, req EnrollRequest) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, path, req)
	if err != nil {
		return err
	}

	var out EnrollResponse
	return decodeJSON(resp, &out, http.StatusOK)
}

// IntrospectAccessToken introspects the session's current access token.
func (s *Session) IntrospectAccessToken(ctx context.Context) (*IntrospectionResponse, error) {
	token, err := s.getValidToken(ctx)
	if err != nil {
		return nil, err
	}
	return s.client.Introspect(ctx, token)
}
