package http

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"mime"
	"net/http"

	"github.com/aussiebroadwan/visageid/internal/idp/service"
	"github.com/aussiebroadwan/visageid/pkg/authsdk"
	"github.com/aussiebroadwan/visageid/pkg/facekit"
	"github.com/aussiebroadwan/visageid/pkg/httpx"
	"github.com/aussiebroadwan/visageid/pkg/slogx"
)

//go:embed templates/authorize.html
var templatesFS embed.FS

var authorizePage = template.Must(template.ParseFS(templatesFS, "templates/authorize.html"))

// authorizeParams are echoed from the authorize query into the verify body.
var authorizeParams = []string{
	"client_id", "state", "redirect_uri", "nonce",
	"code_challenge", "code_challenge_method", "scope",
}

// maxCaptureFrames bounds a multi-frame capture.
const maxCaptureFrames = 8

// AuthorizeHandler serves the face capture page and the verify endpoint
// that issues authorization codes.
type AuthorizeHandler struct {
	AuthorizeService *service.AuthorizeService
	MaxImageBytes    int
	MaxImagePixels   int
	FaceDebug        bool
}

// HandleGet renders the capture page. Parameters are not validated here;
// the verify call checks the client and redirect URI before anything else.
//
//	@Summary		OAuth2 authorization endpoint
//	@Description	Renders an HTML page that captures the user's face and posts it to /oauth/authorize/verify.
//	@Tags			OAuth2
//	@Produce		html
//	@Param			response_type			query		string	false	"Must be 'code'"	default(code)
//	@Param			client_id				query		string	true	"OAuth2 client identifier"
//	@Param			redirect_uri			query		string	true	"Callback URI (must match a registered redirect URI)"
//	@Param			scope					query		string	false	"Space-delimited list of scopes"	default(openid)
//	@Param			state					query		string	false	"Opaque value for CSRF protection"
//	@Param			nonce					query		string	false	"Echoed in the ID token"
//	@Param			code_challenge			query		string	false	"PKCE code challenge"
//	@Param			code_challenge_method	query		string	false	"PKCE method"	Enums(S256, plain)
//	@Success		200						{string}	string	"capture page"
//	@Router			/oauth/authorize [get].
func (h *AuthorizeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := make(map[string]string, len(authorizeParams))
	for _, k := range authorizeParams {
		params[k] = q.Get(k)
	}

	httpx.NoCache(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := authorizePage.Execute(w, params); err != nil {
		slogx.FromContext(r.Context()).Error("failed to render authorize page", "err", err)
	}
}

// HandleVerify handles POST /oauth/authorize/verify
//
//	@Summary		Face verification
//	@Description	Verifies a face capture and issues an authorization code bound to the matched user.
//	@Description	Accepts JSON (image as data URL or base64, or frames for multi-frame liveness) or multipart with an image file part.
//	@Description	Browsers get a 302 to redirect_uri; callers sending Accept: application/json get {"redirect": url}.
//	@Tags			OAuth2
//	@Accept			json
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			request	body		authsdk.VerifyRequest	true	"Authorization parameters and capture"
//	@Success		200		{object}	authsdk.VerifyResponse	"redirect URL with code and state"
//	@Success		302		{string}	string					"redirect to redirect_uri with code and state"
//	@Failure		400		{object}	authsdk.ErrorResponse	"error: reason"
//	@Failure		503		{object}	authsdk.ErrorResponse	"verification timed out"
//	@Router			/oauth/authorize/verify [post].
func (h *AuthorizeHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	req, err := h.readVerifyRequest(w, r)
	if err != nil {
		writeReasonOrError(w, r, err)
		return
	}

	res, err := h.AuthorizeService.Verify(ctx, req)
	if err != nil {
		reason, ok := service.PublicReason(err)
		if !ok {
			log.Error("face verification failed", "err", err)
			httpx.WriteReason(w, http.StatusInternalServerError, "server error")
			return
		}

		var me *service.MatchError
		if h.FaceDebug && errors.As(err, &me) {
			httpx.WriteJSON(w, http.StatusBadRequest, map[string]any{
				"error": reason,
				"debug": map[string]any{
					"reason":     me.Result.Reason,
					"top1":       me.Result.Top1,
					"top2":       me.Result.Top2,
					"threshold":  me.Result.Policy.Threshold,
					"margin":     me.Result.Policy.Margin,
					"candidates": me.Result.Candidates,
					"skipped":    me.Result.Skipped,
				},
			})
			return
		}
		httpx.WriteReason(w, http.StatusBadRequest, reason)
		return
	}

	target := res.RedirectURL()
	if httpx.WantsJSON(r) {
		httpx.WriteJSON(w, http.StatusOK, authsdk.VerifyResponse{Redirect: target})
		return
	}
	httpx.NoCache(w)
	http.Redirect(w, r, target, http.StatusFound)
}

// readVerifyRequest decodes the authorization parameters and the capture
// from a JSON, multipart or form body.
func (h *AuthorizeHandler) readVerifyRequest(w http.ResponseWriter, r *http.Request) (service.VerifyRequest, error) {
	maxImage := h.MaxImageBytes
	lim := facekit.Limits{MaxBytes: maxImage, MaxPixels: h.MaxImagePixels}
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxImage)*2*maxCaptureFrames+1<<20)

	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mt {
	case "application/json":
		var body authsdk.VerifyRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			return service.VerifyRequest{}, tooLargeOr(err, service.ErrInvalidImage)
		}
		if len(body.Frames) > maxCaptureFrames {
			return service.VerifyRequest{}, service.ErrInvalidImage
		}
		capture, err := service.DecodeCapture(body.Image, body.Frames, lim)
		if err != nil {
			return service.VerifyRequest{}, err
		}
		return service.VerifyRequest{
			ClientID:            body.ClientID,
			RedirectURI:         body.RedirectURI,
			State:               body.State,
			Nonce:               body.Nonce,
			Scope:               body.Scope,
			CodeChallenge:       body.CodeChallenge,
			CodeChallengeMethod: body.CodeChallengeMethod,
			Capture:             capture,
		}, nil

	case "multipart/form-data":
		if err := r.ParseMultipartForm(int64(maxImage) + 1<<20); err != nil {
			return service.VerifyRequest{}, tooLargeOr(err, service.ErrInvalidUpload)
		}
		req := verifyRequestFromForm(r)
		capture, err := captureFromMultipart(r, lim)
		if err != nil {
			return service.VerifyRequest{}, err
		}
		req.Capture = capture
		return req, nil

	default:
		if err := r.ParseForm(); err != nil {
			return service.VerifyRequest{}, tooLargeOr(err, service.ErrInvalidImage)
		}
		req := verifyRequestFromForm(r)
		frames := r.PostForm["frames"]
		if len(frames) > maxCaptureFrames {
			return service.VerifyRequest{}, service.ErrInvalidImage
		}
		capture, err := service.DecodeCapture(r.PostForm.Get("image"), frames, lim)
		if err != nil {
			return service.VerifyRequest{}, err
		}
		req.Capture = capture
		return req, nil
	}
}

func verifyRequestFromForm(r *http.Request) service.VerifyRequest {
	return service.VerifyRequest{
		ClientID:            r.FormValue("client_id"),
		RedirectURI:         r.FormValue("redirect_uri"),
		State:               r.FormValue("state"),
		Nonce:               r.FormValue("nonce"),
		Scope:               r.FormValue("scope"),
		CodeChallenge:       r.FormValue("code_challenge"),
		CodeChallengeMethod: r.FormValue("code_challenge_method"),
	}
}

// captureFromMultipart reads the "image" file part, falling back to an
// inline image or frames field.
func captureFromMultipart(r *http.Request, lim facekit.Limits) (facekit.Capture, error) {
	f, _, err := r.FormFile("image")
	switch {
	case err == nil:
		defer f.Close()
		raw, err := io.ReadAll(io.LimitReader(f, int64(lim.MaxBytes)+1))
		if err != nil {
			return facekit.Capture{}, service.ErrInvalidUpload
		}
		return service.DecodeUpload(raw, lim)
	case errors.Is(err, http.ErrMissingFile):
		return service.DecodeCapture(r.FormValue("image"), r.MultipartForm.Value["frames"], lim)
	default:
		return facekit.Capture{}, service.ErrInvalidUpload
	}
}

// tooLargeOr maps an exceeded body limit to ErrImageTooLarge and anything
// else to fallback.
func tooLargeOr(err, fallback error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return service.ErrImageTooLarge
	}
	return fallback
}

// writeReasonOrError writes a 400 for client errors and a 500 otherwise.
func writeReasonOrError(w http.ResponseWriter, r *http.Request, err error) {
	if reason, ok := service.PublicReason(err); ok {
		httpx.WriteReason(w, http.StatusBadRequest, reason)
		return
	}
	slogx.FromContext(r.Context()).Error("request failed", "err", err)
	httpx.WriteReason(w, http.StatusInternalServerError, "server error")
}
