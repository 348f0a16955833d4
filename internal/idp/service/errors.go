package service

import (
	"errors"
	"fmt"

	"github.com/aussiebroadwan/visageid/pkg/facekit"
)

// ReasonError is a client error carrying the reason string returned to the
// caller. The sentinels below are compared with errors.Is.
type ReasonError struct {
	Reason string
}

func (e *ReasonError) Error() string { return e.Reason }

func reason(s string) *ReasonError { return &ReasonError{Reason: s} }

// Face gate and authorization code reasons.
var (
	ErrUnknownClient       = reason("invalid client")
	ErrInvalidRedirectURI  = reason("invalid redirect_uri")
	ErrImageRequired       = reason("image required")
	ErrInvalidImage        = reason("invalid image data")
	ErrInvalidUpload       = reason("invalid image upload")
	ErrImageTooLarge       = reason("image too large")
	ErrLivenessFailed      = reason("liveness check failed")
	ErrNoFace              = reason("no face detected")
	ErrFaceNotRecognized   = reason("face not recognized")
	ErrInvalidCode         = reason("invalid code")
	ErrPKCEFailed          = reason("pkce verification failed")
	ErrEnrollmentLimit     = reason("enrollment limit reached")
	ErrEmailTaken          = reason("email already registered")
	ErrSignupFieldsMissing = reason("email and display_name required")
	ErrInvalidEmail        = reason("invalid email")
)

var (
	// ErrInvalidClient is the single failure returned by client
	// authentication, whatever went wrong.
	ErrInvalidClient = errors.New("invalid_client")

	// ErrInvalidToken covers missing, revoked, expired and mistyped tokens.
	ErrInvalidToken = errors.New("invalid_token")

	ErrInvalidGrant       = errors.New("invalid_grant")
	ErrUnsupportedGrant   = errors.New("unsupported_grant_type")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrNotFound           = errors.New("not found")
	ErrOrganizationAbsent = errors.New("organization not found")
)

// MatchError reports a rejected match. It unwraps to ErrFaceNotRecognized
// and keeps the scores for debug output.
type MatchError struct {
	Result facekit.MatchResult
}

func (e *MatchError) Error() string {
	return fmt.Sprintf("%s: %s (top1=%.4f top2=%.4f)", ErrFaceNotRecognized.Reason, e.Result.Reason, e.Result.Top1, e.Result.Top2)
}

func (e *MatchError) Unwrap() error { return ErrFaceNotRecognized }

// PublicReason returns the reason string for err when it is a client error.
func PublicReason(err error) (string, bool) {
	var re *ReasonError
	if errors.As(err, &re) {
		return re.Reason, true
	}
	return "", false
}

// captureError maps perception errors to their public reasons. Unknown
// errors are returned unchanged.
func captureError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, facekit.ErrImageRequired):
		return ErrImageRequired
	case errors.Is(err, facekit.ErrImageTooLarge):
		return ErrImageTooLarge
	case errors.Is(err, facekit.ErrImageData):
		return ErrInvalidImage
	case errors.Is(err, facekit.ErrNotLive):
		return ErrLivenessFailed
	case errors.Is(err, facekit.ErrNoFace):
		return ErrNoFace
	}
	return err
}
