package authsdk

import (
	"context"
	"net/http"
)

// FaceSignup creates a user and enrolls the first face in one call.
// A duplicate email comes back as the reason "email already registered".
func (c *SDKClient) FaceSignup(ctx context.Context, req SignupRequest) (*SignupResponse, error) {
	resp, err := c.doBearerJSON(ctx, http.MethodPost, "/account/face/signup", "", req)
	if err != nil {
		return nil, err
	}

	var out SignupResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}

	return &out, nil
}
