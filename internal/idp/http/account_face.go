package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/aussiebroadwan/visageid/internal/idp/service"
	"github.com/aussiebroadwan/visageid/pkg/authsdk"
	"github.com/aussiebroadwan/visageid/pkg/facekit"
	"github.com/aussiebroadwan/visageid/pkg/httpx"
	"github.com/aussiebroadwan/visageid/pkg/slogx"
)

// FaceAccountHandler serves signup and the enrollment endpoints.
type FaceAccountHandler struct {
	EnrollmentService *service.EnrollmentService
	MaxImageBytes     int
	MaxImagePixels    int
}

// HandleSignup handles POST /account/face/signup
//
//	@Summary		Face signup
//	@Description	Creates a user and stores the first face embedding. Accepts JSON or multipart with an image file part.
//	@Tags			Account
//	@Accept			json
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			request	body		authsdk.SignupRequest	true	"email, display_name and capture"
//	@Success		201		{object}	authsdk.SignupResponse	"created user"
//	@Failure		400		{object}	authsdk.ErrorResponse	"error: reason"
//	@Failure		429		{object}	authsdk.ErrorResponse	"Too many requests"
//	@Router			/account/face/signup [post].
func (h *FaceAccountHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var email, displayName string
	capture, err := h.readCapture(w, r, func(body *authsdk.SignupRequest) {
		email, displayName = body.Email, body.DisplayName
	})
	if err != nil {
		writeReasonOrError(w, r, err)
		return
	}

	user, err := h.EnrollmentService.Signup(ctx, service.SignupRequest{
		Email:       email,
		DisplayName: displayName,
		Capture:     capture,
	})
	if err != nil {
		writeReasonOrError(w, r, err)
		return
	}

	log.Info("face signup completed", "user_id", user.ID)
	httpx.WriteJSON(w, http.StatusCreated, authsdk.SignupResponse{
		Created: true,
		User: authsdk.SignupUser{
			ID:          user.ID,
			Email:       user.Email,
			DisplayName: user.DisplayName,
		},
	})
}

// HandleEnroll handles POST /account/face/enroll
//
//	@Summary		Enroll an additional face
//	@Description	Adds an embedding for the authenticated user. Rejected with "enrollment limit reached" when the per-user cap is hit.
//	@Tags			Account
//	@Security		BearerAuth
//	@Accept			json
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			request	body		authsdk.EnrollRequest	true	"capture"
//	@Success		200		{object}	authsdk.EnrollResponse	"enrolled"
//	@Failure		400		{object}	authsdk.ErrorResponse	"error: reason"
//	@Failure		401		{object}	authsdk.ErrorResponse	"unauthorized"
//	@Router			/account/face/enroll [post].
func (h *FaceAccountHandler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	h.enroll(w, r, false)
}

// HandleReenroll handles POST /account/face/reenroll
//
//	@Summary		Replace enrolled faces
//	@Description	Deactivates every active embedding of the authenticated user, then stores the new one.
//	@Tags			Account
//	@Security		BearerAuth
//	@Accept			json
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			request	body		authsdk.EnrollRequest	true	"capture"
//	@Success		200		{object}	authsdk.EnrollResponse	"reenrolled"
//	@Failure		400		{object}	authsdk.ErrorResponse	"error: reason"
//	@Failure		401		{object}	authsdk.ErrorResponse	"unauthorized"
//	@Router			/account/face/reenroll [post].
func (h *FaceAccountHandler) HandleReenroll(w http.ResponseWriter, r *http.Request) {
	h.enroll(w, r, true)
}

func (h *FaceAccountHandler) enroll(w http.ResponseWriter, r *http.Request, replace bool) {
	ctx := r.Context()

	p, ok := httpx.PrincipalFromContext(ctx)
	if !ok || p.Subject == "" {
		httpx.WriteReason(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	capture, err := h.readCapture(w, r, nil)
	if err != nil {
		writeReasonOrError(w, r, err)
		return
	}

	if replace {
		err = h.EnrollmentService.Reenroll(ctx, p.Subject, capture)
	} else {
		err = h.EnrollmentService.Enroll(ctx, p.Subject, capture)
	}
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			httpx.WriteReason(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		writeReasonOrError(w, r, err)
		return
	}

	if replace {
		httpx.WriteJSON(w, http.StatusOK, authsdk.EnrollResponse{Reenrolled: true})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.EnrollResponse{Enrolled: true})
}

// readCapture decodes the capture from a JSON or multipart body. When fields
// is non-nil it receives the signup fields as well.
func (h *FaceAccountHandler) readCapture(
	w http.ResponseWriter,
	r *http.Request,
	fields func(*authsdk.SignupRequest),
) (facekit.Capture, error) {
	maxImage := h.MaxImageBytes
	lim := facekit.Limits{MaxBytes: maxImage, MaxPixels: h.MaxImagePixels}
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxImage)*2*maxCaptureFrames+1<<20)

	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mt {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(int64(maxImage) + 1<<20); err != nil {
			return facekit.Capture{}, tooLargeOr(err, service.ErrInvalidUpload)
		}
		if fields != nil {
			fields(&authsdk.SignupRequest{
				Email:       r.FormValue("email"),
				DisplayName: r.FormValue("display_name"),
			})
		}
		return captureFromMultipart(r, lim)

	default:
		var body authsdk.SignupRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			return facekit.Capture{}, tooLargeOr(err, service.ErrInvalidImage)
		}
		if fields != nil {
			fields(&body)
		}
		if len(body.Frames) > maxCaptureFrames {
			return facekit.Capture{}, service.ErrInvalidImage
		}
		return service.DecodeCapture(body.Image, body.Frames, lim)
	}
}
