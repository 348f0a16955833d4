package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/visageid/pkg/httpx"
)

// OAuth2 error codes (RFC 6749 section 5.2) used by the token, revoke and
// introspect endpoints.
const (
	ErrorCodeInvalidRequest       = "invalid_request"
	ErrorCodeInvalidClient        = "invalid_client"
	ErrorCodeInvalidGrant         = "invalid_grant"
	ErrorCodeUnsupportedGrantType = "unsupported_grant_type"
	ErrorCodeServerError          = "server_error"

	// ErrorCodeValidation is the code of an admin request that failed field
	// validation. See ValidationErrorResponse.
	ErrorCodeValidation = "validation_error"
)

// Reasons the face endpoints answer with. They arrive as the Code of an
// *OAuth2Error and are matched with IsReason.
const (
	ReasonInvalidClient      = "invalid client"
	ReasonInvalidRedirectURI = "invalid redirect_uri"
	ReasonImageRequired      = "image required"
	ReasonInvalidImage       = "invalid image data"
	ReasonInvalidUpload      = "invalid image upload"
	ReasonImageTooLarge      = "image too large"
	ReasonLivenessFailed     = "liveness check failed"
	ReasonNoFace             = "no face detected"
	ReasonFaceNotRecognized  = "face not recognized"
	ReasonEmailTaken         = "email already registered"
	ReasonEnrollmentLimit    = "enrollment limit reached"
	ReasonUnauthorized       = "unauthorized"
)

// OAuth2Error is an error response from the provider. The server writes it
// with WriteError and the SDK returns it from every failed call.
type OAuth2Error struct {
	StatusCode int `json:"-"`

	// Code is the RFC 6749 error code, or the reason string for face
	// endpoint rejections.
	Code string `json:"error"`

	Description string `json:"error_description,omitempty"`
}

func (e *OAuth2Error) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError writes e as a no-store JSON response.
func (e *OAuth2Error) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             e.Code,
		"error_description": e.Description,
	})
}

var (
	ErrInvalidRequest = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	// ErrInvalidClient covers every client authentication failure. Unknown
	// client, wrong secret and a missing secret are indistinguishable.
	ErrInvalidClient = &OAuth2Error{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidClient,
		Description: "invalid client",
	}

	// ErrInvalidGrant is returned when the authorization code is unknown,
	// consumed, expired or was issued to another client.
	ErrInvalidGrant = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidGrant,
		Description: "invalid code",
	}

	// ErrPKCEFailed is returned when the code_verifier is missing or does not
	// match the stored challenge.
	ErrPKCEFailed = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidGrant,
		Description: "pkce verification failed",
	}

	ErrUnsupportedGrantType = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeUnsupportedGrantType,
		Description: "grant type not supported",
	}

	ErrServerError = &OAuth2Error{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}

	ErrInvalidContentType = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "content-type must be application/json or application/x-www-form-urlencoded",
	}

	ErrInvalidFormBody = &OAuth2Error{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "invalid form body",
	}
)

// IsReason reports whether err is a provider error whose code is reason,
// e.g. IsReason(err, ReasonFaceNotRecognized).
func IsReason(err error, reason string) bool {
	var oe *OAuth2Error
	return errors.As(err, &oe) && oe.Code == reason
}

// NewOAuth2Error builds an error with a custom description.
func NewOAuth2Error(statusCode int, code, description string) *OAuth2Error {
	return &OAuth2Error{
		StatusCode:  statusCode,
		Code:        code,
		Description: description,
	}
}

// parseErrorResponse turns a non-2xx response into an *OAuth2Error. Face
// endpoints answer {"error": reason}, admin validation failures answer
// ValidationErrorResponse, and anything else falls back to the status text.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &OAuth2Error{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}

	var valErr ValidationErrorResponse
	if err := json.Unmarshal(body, &valErr); err == nil && valErr.Code != "" {
		return &OAuth2Error{
			StatusCode:  resp.StatusCode,
			Code:        valErr.Code,
			Description: valErr.Message,
		}
	}

	return &OAuth2Error{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
