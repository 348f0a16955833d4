package http_test

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/visageid/internal/idp/domain"
	idphttp "github.com/aussiebroadwan/visageid/internal/idp/http"
	"github.com/aussiebroadwan/visageid/internal/idp/metrics"
	"github.com/aussiebroadwan/visageid/internal/idp/service"
	"github.com/aussiebroadwan/visageid/internal/idp/store/drivers/sqlite"
	"github.com/aussiebroadwan/visageid/pkg/authsdk"
	"github.com/aussiebroadwan/visageid/pkg/cryptox"
	"github.com/aussiebroadwan/visageid/pkg/facekit"
	"github.com/aussiebroadwan/visageid/pkg/httpx"
	"github.com/aussiebroadwan/visageid/pkg/jwtx"
)

const (
	testIssuer     = "https://idp.test"
	testRedirect   = "https://rp.test/callback"
	testLogout     = "https://rp.test/bye"
	testAdminToken = "admin-secret"
)

var testSigningKey = sync.OnceValues(func() ([]byte, error) {
	return cryptox.GenerateRSAKey(2048)
})

var generous = httpx.RateLimitConfig{Requests: 10000, Window: time.Minute, Burst: 10000}

type fixture struct {
	srv          *httptest.Server
	sdk          *authsdk.SDKClient
	enroll       *service.EnrollmentService
	authorize    *service.AuthorizeService
	public       domain.Client
	confidential domain.Client
	secret       string
}

// newFixture serves the full router over an in-memory store with one
// public and one confidential client registered.
func newFixture(t *testing.T, debug bool) *fixture {
	t.Helper()
	ctx := context.Background()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	pem, err := testSigningKey()
	require.NoError(t, err)
	km, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{Issuer: testIssuer, PrivateKeyPEM: pem, KeyID: "test"})
	require.NoError(t, err)

	keyring, err := cryptox.NewKeyring([]byte("router-test-key"))
	require.NoError(t, err)
	codec := facekit.NewCodec(keyring)
	pipeline := &facekit.Pipeline{Liveness: facekit.NewHeuristicLiveness(), Embedder: facekit.MeanColorEmbedder{}}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	orgs := &service.OrganizationService{Store: st}
	clients := &service.ClientService{Store: st}
	enroll := &service.EnrollmentService{Store: st, Pipeline: pipeline, Codec: codec, Metrics: m}

	router := idphttp.NewRouter(km, testIssuer, "test", st, slog.New(slog.DiscardHandler))
	router.AuthorizeService = &service.AuthorizeService{
		Store:    st,
		Pipeline: pipeline,
		Gallery:  &service.Gallery{Store: st, Codec: codec},
		Policy:   facekit.DefaultPolicy(),
		CodeTTL:  time.Minute,
		Metrics:  m,
	}
	router.TokenService = &service.TokenService{
		KeyManager:  km,
		Store:       st,
		Issuer:      testIssuer,
		AccessTTL:   10 * time.Minute,
		RefreshTTL:  time.Hour,
		IDTokenTTL:  10 * time.Minute,
		AccessAsJWT: true,
		Metrics:     m,
	}
	router.EnrollmentService = enroll
	router.UserService = &service.UserService{Store: st}
	router.OrganizationService = orgs
	router.ClientService = clients
	router.RekeyService = &service.RekeyService{Store: st, Keyring: keyring, Codec: codec}
	router.Gatherer = reg
	router.Options = idphttp.Options{
		AdminToken: testAdminToken,
		FaceDebug:  debug,
		Limits:     &idphttp.RateLimits{Strict: generous, Moderate: generous, Lenient: generous, Public: generous},
	}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	org, err := orgs.CreateOrganization(ctx, "Acme", "")
	require.NoError(t, err)
	public, _, err := clients.CreateClient(ctx, service.CreateClientRequest{
		OrganizationID: org.ID,
		Name:           "spa",
		RedirectURIs:   []string{testRedirect},
	})
	require.NoError(t, err)
	confidential, secret, err := clients.CreateClient(ctx, service.CreateClientRequest{
		OrganizationID:         org.ID,
		Name:                   "backend",
		RedirectURIs:           []string{testRedirect},
		PostLogoutRedirectURIs: []string{testLogout},
		Confidential:           true,
	})
	require.NoError(t, err)

	return &fixture{
		srv:          srv,
		sdk:          authsdk.NewSDKClient(srv.URL),
		enroll:       enroll,
		authorize:    router.AuthorizeService,
		public:       public,
		confidential: confidential,
		secret:       secret,
	}
}

// face returns a frame dominated by c with alternating dim rows so it
// passes the heuristic liveness check.
func face(c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	dim := color.RGBA{R: c.R / 2, G: c.G / 2, B: c.B / 2, A: 255}
	for y := range 32 {
		for x := range 32 {
			if y%2 == 0 {
				img.SetRGBA(x, y, c)
			} else {
				img.SetRGBA(x, y, dim)
			}
		}
	}
	return img
}

var (
	redFace   = face(color.RGBA{R: 230, G: 50, B: 50, A: 255})
	blueFace  = face(color.RGBA{R: 60, G: 60, B: 240, A: 255})
	greenFace = face(color.RGBA{R: 50, G: 230, B: 60, A: 255})
)

// oversizedPNG is a tiny PNG whose header declares w x h pixels.
func oversizedPNG(t *testing.T, w, h uint32) string {
	t.Helper()
	raw := pngBytes(t, image.NewGray(image.Rect(0, 0, 1, 1)))
	binary.BigEndian.PutUint32(raw[16:20], w)
	binary.BigEndian.PutUint32(raw[20:24], h)
	binary.BigEndian.PutUint32(raw[29:33], crc32.ChecksumIEEE(raw[12:29]))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func dataURL(t *testing.T, img image.Image) string {
	t.Helper()
	return authsdk.EncodeImage("image/png", pngBytes(t, img))
}

func (f *fixture) signup(t *testing.T, email string, img image.Image) domain.User {
	t.Helper()
	u, err := f.enroll.Signup(context.Background(), service.SignupRequest{
		Email:       email,
		DisplayName: "User " + email,
		Capture:     facekit.Capture{Frames: []image.Image{img}},
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) params() authsdk.AuthorizeParams {
	return authsdk.AuthorizeParams{
		ClientID:    f.confidential.ClientID,
		RedirectURI: testRedirect,
		State:       "xyz",
		Nonce:       "n-1",
		Scopes:      []string{"openid", "profile", "email"},
	}
}

func (f *fixture) creds() authsdk.Credentials {
	return authsdk.Credentials{ClientID: f.confidential.ClientID, ClientSecret: f.secret}
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func noRedirect() *http.Client {
	return &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
}

func TestDiscoveryAndJWKS(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)

	doc, err := f.sdk.Discover(t.Context())
	require.NoError(t, err)
	require.Equal(t, testIssuer, doc.Issuer)
	require.Equal(t, testIssuer+"/oauth/token", doc.TokenEndpoint)
	require.Contains(t, doc.CodeChallengeMethodsSupported, "S256")

	jwks, err := f.sdk.GetJWKS(t.Context())
	require.NoError(t, err)
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, "test", jwks.Keys[0].Kid)
}

func TestAuthorizePage(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)

	resp, err := http.Get(f.srv.URL + "/oauth/authorize?client_id=" + f.public.ClientID + "&state=%3Cscript%3E")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), f.public.ClientID)
	require.NotContains(t, string(body), `"<script>"`)
}

func TestVerifyAndExchange(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)
	ada := f.signup(t, "ada@example.com", redFace)
	f.signup(t, "bob@example.com", blueFace)

	session, err := f.sdk.AuthorizeAndExchange(t.Context(), f.creds(), f.params(), dataURL(t, redFace))
	require.NoError(t, err)
	require.NotEmpty(t, session.IDToken())
	require.True(t, session.HasAllScopes("openid", "profile"))

	info, err := session.GetUserInfo(t.Context())
	require.NoError(t, err)
	require.Equal(t, ada.ID, info.Sub)
	require.Equal(t, "ada@example.com", info.Email)
	require.Equal(t, ada.DisplayName, info.Name)

	intro, err := f.sdk.Introspect(t.Context(), session.AccessToken())
	require.NoError(t, err)
	require.True(t, intro.Active)
	require.Equal(t, ada.ID, intro.Sub)
	require.Equal(t, f.confidential.ClientID, intro.ClientID)

	require.NoError(t, f.sdk.RevokeToken(t.Context(), session.AccessToken()))
	intro, err = f.sdk.Introspect(t.Context(), session.AccessToken())
	require.NoError(t, err)
	require.False(t, intro.Active)

	// Revoking again is still a success.
	require.NoError(t, f.sdk.RevokeToken(t.Context(), session.AccessToken()))
}

func TestVerifyRedirectsBrowsers(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)
	f.signup(t, "ada@example.com", redFace)

	form := url.Values{
		"client_id":    {f.public.ClientID},
		"redirect_uri": {testRedirect},
		"state":        {"s-1"},
		"image":        {dataURL(t, redFace)},
	}
	resp, err := noRedirect().PostForm(f.srv.URL+"/oauth/authorize/verify", form)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	code, state, err := authsdk.ParseAuthorizationCallback(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.NotEmpty(t, code)
	require.Equal(t, "s-1", state)
	require.True(t, strings.HasPrefix(resp.Header.Get("Location"), testRedirect+"?"))

	// Public client redeems with client_id only; a second redemption fails.
	creds := authsdk.Credentials{ClientID: f.public.ClientID}
	_, err = f.sdk.ExchangeAuthorizationCode(t.Context(), creds, code, testRedirect, "")
	require.NoError(t, err)
	_, err = f.sdk.ExchangeAuthorizationCode(t.Context(), creds, code, testRedirect, "")
	require.True(t, authsdk.IsReason(err, authsdk.ErrorCodeInvalidGrant))
}

func TestVerifyMultipartUpload(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)
	f.signup(t, "ada@example.com", redFace)

	var body bytes.Buffer
	mw := newMultipart(t, &body, map[string]string{
		"client_id":    f.public.ClientID,
		"redirect_uri": testRedirect,
		"state":        "m-1",
	}, pngBytes(t, redFace))

	req, err := http.NewRequest(http.MethodPost, f.srv.URL+"/oauth/authorize/verify", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw)
	req.Header.Set("Accept", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[authsdk.VerifyResponse](t, resp)
	require.Contains(t, out.Redirect, "state=m-1")
}

func TestVerifyRejections(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)
	f.signup(t, "ada@example.com", redFace)
	f.signup(t, "bob@example.com", blueFace)

	base := f.params()
	cases := []struct {
		name   string
		mutate func(*authsdk.VerifyRequest)
		want   string
	}{
		{"unknown client", func(r *authsdk.VerifyRequest) { r.ClientID = "nope" }, "invalid client"},
		{"unregistered redirect", func(r *authsdk.VerifyRequest) { r.RedirectURI = "https://evil.test/cb" }, "invalid redirect_uri"},
		{"no image", func(r *authsdk.VerifyRequest) { r.Image = "" }, "image required"},
		{"garbage image", func(r *authsdk.VerifyRequest) { r.Image = "data:image/png;base64,bm90IGFuIGltYWdl" }, "invalid image data"},
		{"oversized dimensions", func(r *authsdk.VerifyRequest) { r.Image = oversizedPNG(t, 12000, 12000) }, "image too large"},
		{"oversized frame", func(r *authsdk.VerifyRequest) {
			r.Image = ""
			r.Frames = []string{dataURL(t, redFace), oversizedPNG(t, 5000, 5000)}
		}, "image too large"},
		{"stranger", func(r *authsdk.VerifyRequest) { r.Image = dataURL(t, greenFace) }, "face not recognized"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := base.VerifyRequestFor()
			req.Image = dataURL(t, redFace)
			tc.mutate(&req)

			_, _, err := f.sdk.VerifyFace(t.Context(), req)
			var oe *authsdk.OAuth2Error
			require.ErrorAs(t, err, &oe)
			require.Equal(t, http.StatusBadRequest, oe.StatusCode)
			require.Equal(t, tc.want, oe.Code)
		})
	}
}

func TestVerifyDebugScores(t *testing.T) {
	t.Parallel()

	type debugBody struct {
		Error string         `json:"error"`
		Debug map[string]any `json:"debug"`
	}
	verify := func(t *testing.T, f *fixture, img image.Image) debugBody {
		t.Helper()
		req := f.params().VerifyRequestFor()
		req.Image = dataURL(t, img)
		raw, err := json.Marshal(req)
		require.NoError(t, err)

		resp, err := http.Post(f.srv.URL+"/oauth/authorize/verify", "application/json", bytes.NewReader(raw))
		require.NoError(t, err)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		return decode[debugBody](t, resp)
	}

	t.Run("empty gallery", func(t *testing.T) {
		f := newFixture(t, true)

		out := verify(t, f, redFace)
		require.Equal(t, "face not recognized", out.Error)
		require.Equal(t, facekit.ReasonNoGallery, out.Debug["reason"])
		require.InDelta(t, facekit.DefaultThreshold, out.Debug["threshold"], 1e-9)
		require.InDelta(t, facekit.DefaultMargin, out.Debug["margin"], 1e-9)
	})

	t.Run("below threshold", func(t *testing.T) {
		f := newFixture(t, true)
		f.signup(t, "ada@example.com", redFace)

		out := verify(t, f, greenFace)
		require.Equal(t, facekit.ReasonBelowThreshold, out.Debug["reason"])
		require.Less(t, out.Debug["top1"], out.Debug["threshold"])
	})

	t.Run("ambiguous under margin", func(t *testing.T) {
		f := newFixture(t, true)
		f.authorize.Policy = facekit.Policy{Threshold: 0.7, Margin: 0.05}
		f.signup(t, "ada@example.com", redFace)
		f.signup(t, "eve@example.com", face(color.RGBA{R: 220, G: 58, B: 52, A: 255}))

		out := verify(t, f, redFace)
		require.Equal(t, "face not recognized", out.Error)
		require.Equal(t, facekit.ReasonAmbiguous, out.Debug["reason"])
		require.InDelta(t, 0.7, out.Debug["threshold"], 1e-9)
		require.InDelta(t, 0.05, out.Debug["margin"], 1e-9)

		top1, top2 := out.Debug["top1"].(float64), out.Debug["top2"].(float64)
		require.GreaterOrEqual(t, top1, 0.7)
		require.Less(t, top1-top2, 0.05)
		require.InDelta(t, 2, out.Debug["candidates"], 0)
	})
}

func TestTokenEndpointErrors(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)
	f.signup(t, "ada@example.com", redFace)

	t.Run("wrong secret", func(t *testing.T) {
		req := f.params().VerifyRequestFor()
		req.Image = dataURL(t, redFace)
		code, _, err := f.sdk.VerifyFace(t.Context(), req)
		require.NoError(t, err)

		_, err = f.sdk.ExchangeAuthorizationCode(t.Context(),
			authsdk.Credentials{ClientID: f.confidential.ClientID, ClientSecret: "wrong"}, code, testRedirect, "")
		var oe *authsdk.OAuth2Error
		require.ErrorAs(t, err, &oe)
		require.Equal(t, http.StatusUnauthorized, oe.StatusCode)
		require.Equal(t, authsdk.ErrorCodeInvalidClient, oe.Code)
	})

	t.Run("pkce mismatch", func(t *testing.T) {
		pkce, err := authsdk.GeneratePKCEChallenge()
		require.NoError(t, err)
		p := f.params()
		p.PKCE = pkce
		req := p.VerifyRequestFor()
		req.Image = dataURL(t, redFace)
		code, _, err := f.sdk.VerifyFace(t.Context(), req)
		require.NoError(t, err)

		_, err = f.sdk.ExchangeAuthorizationCode(t.Context(), f.creds(), code, testRedirect, "not-the-verifier")
		var oe *authsdk.OAuth2Error
		require.ErrorAs(t, err, &oe)
		require.Equal(t, "pkce verification failed", oe.Description)
	})

	t.Run("pkce plain over json", func(t *testing.T) {
		p := f.params()
		req := p.VerifyRequestFor()
		req.CodeChallenge = "plain-verifier-value"
		req.CodeChallengeMethod = "plain"
		req.Image = dataURL(t, redFace)
		code, _, err := f.sdk.VerifyFace(t.Context(), req)
		require.NoError(t, err)

		raw, err := json.Marshal(map[string]string{
			"grant_type":    "authorization_code",
			"code":          code,
			"redirect_uri":  testRedirect,
			"code_verifier": "plain-verifier-value",
			"client_id":     f.confidential.ClientID,
			"client_secret": f.secret,
		})
		require.NoError(t, err)
		resp, err := http.Post(f.srv.URL+"/oauth/token", "application/json", bytes.NewReader(raw))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
		tokens := decode[authsdk.TokenResponse](t, resp)
		require.Equal(t, "Bearer", tokens.TokenType)
		require.Positive(t, tokens.ExpiresIn)
	})

	t.Run("unsupported grant", func(t *testing.T) {
		resp, err := http.PostForm(f.srv.URL+"/oauth/token", url.Values{"grant_type": {"password"}})
		require.NoError(t, err)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, authsdk.ErrorCodeUnsupportedGrantType, decode[authsdk.ErrorResponse](t, resp).Error)
	})

	t.Run("unknown code", func(t *testing.T) {
		_, err := f.sdk.ExchangeAuthorizationCode(t.Context(), f.creds(), "bogus", testRedirect, "")
		var oe *authsdk.OAuth2Error
		require.ErrorAs(t, err, &oe)
		require.Equal(t, authsdk.ErrorCodeInvalidGrant, oe.Code)
		require.Equal(t, "invalid code", oe.Description)
	})
}

func TestRefreshRotation(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)
	f.signup(t, "ada@example.com", redFace)

	session, err := f.sdk.AuthorizeAndExchange(t.Context(), f.creds(), f.params(), dataURL(t, redFace))
	require.NoError(t, err)
	first := session.RefreshToken()

	rotated, err := f.sdk.RefreshGrant(t.Context(), f.creds(), first)
	require.NoError(t, err)
	require.NotEqual(t, first, rotated.RefreshToken)

	_, err = f.sdk.RefreshGrant(t.Context(), f.creds(), first)
	require.True(t, authsdk.IsReason(err, authsdk.ErrorCodeInvalidGrant))
}

func TestUserInfoRequiresBearer(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)

	req, err := http.NewRequest(http.MethodGet, f.srv.URL+"/oauth/userinfo", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, resp.Header.Get("WWW-Authenticate"), "Bearer")
	require.Equal(t, "unauthorized", decode[authsdk.ErrorResponse](t, resp).Error)
}

func TestLogout(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)

	target, err := f.sdk.Logout(t.Context(), f.confidential.ClientID, testLogout, "bye-1")
	require.NoError(t, err)
	require.Equal(t, testLogout+"?state=bye-1", target)

	target, err = f.sdk.Logout(t.Context(), f.public.ClientID, testLogout, "")
	require.NoError(t, err)
	require.Empty(t, target)
}

func TestFaceAccount(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)

	created, err := f.sdk.FaceSignup(t.Context(), authsdk.SignupRequest{
		Email:       "ada@example.com",
		DisplayName: "Ada",
		Image:       dataURL(t, redFace),
	})
	require.NoError(t, err)
	require.True(t, created.Created)
	require.Equal(t, "ada@example.com", created.User.Email)

	_, err = f.sdk.FaceSignup(t.Context(), authsdk.SignupRequest{
		Email:       "ada@example.com",
		DisplayName: "Ada again",
		Image:       dataURL(t, blueFace),
	})
	require.True(t, authsdk.IsReason(err, "email already registered"))

	session, err := f.sdk.AuthorizeAndExchange(t.Context(), f.creds(), f.params(), dataURL(t, redFace))
	require.NoError(t, err)

	require.NoError(t, session.EnrollFace(t.Context(), authsdk.EnrollRequest{Image: dataURL(t, redFace)}))
	require.NoError(t, session.ReenrollFace(t.Context(), authsdk.EnrollRequest{Image: dataURL(t, blueFace)}))

	// After re-enrolling only the new face matches.
	_, err = f.sdk.AuthorizeAndExchange(t.Context(), f.creds(), f.params(), dataURL(t, blueFace))
	require.NoError(t, err)
}

func TestAdminAPI(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)
	admin := f.sdk.Admin(testAdminToken)

	t.Run("wrong token", func(t *testing.T) {
		_, err := f.sdk.Admin("nope").ListClients(t.Context())
		var oe *authsdk.OAuth2Error
		require.ErrorAs(t, err, &oe)
		require.Equal(t, http.StatusUnauthorized, oe.StatusCode)
	})

	org, err := admin.CreateOrganization(t.Context(), authsdk.CreateOrganizationRequest{Name: "Globex"})
	require.NoError(t, err)
	require.NotEmpty(t, org.ID)

	orgs, err := admin.ListOrganizations(t.Context())
	require.NoError(t, err)
	require.Len(t, orgs.Organizations, 2)

	t.Run("validation", func(t *testing.T) {
		_, err := admin.CreateClient(t.Context(), authsdk.CreateClientRequest{
			OrganizationID: org.ID,
			Name:           "bad",
			RedirectURIs:   []string{"not a url"},
		})
		require.True(t, authsdk.IsReason(err, authsdk.ErrorCodeValidation))

		raw, err := json.Marshal(authsdk.CreateClientRequest{OrganizationID: org.ID, RedirectURIs: []string{"not a url"}})
		require.NoError(t, err)
		req, err := http.NewRequest(http.MethodPost, f.srv.URL+"/admin/clients", bytes.NewReader(raw))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+testAdminToken)
		req.Header.Set("Content-Type", "application/json")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		out := decode[authsdk.ValidationErrorResponse](t, resp)
		require.Equal(t, "url", out.Details["redirect_uris[0]"])
		require.Equal(t, "required", out.Details["name"])
	})

	created, err := admin.CreateClient(t.Context(), authsdk.CreateClientRequest{
		OrganizationID: org.ID,
		Name:           "portal",
		RedirectURIs:   []string{testRedirect},
		Confidential:   true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ClientSecret)
	require.True(t, created.Client.Confidential)

	rotated, err := admin.RotateClientSecret(t.Context(), created.Client.ClientID)
	require.NoError(t, err)
	require.NotEqual(t, created.ClientSecret, rotated.ClientSecret)

	_, err = admin.RotateClientSecret(t.Context(), f.public.ClientID)
	require.True(t, authsdk.IsReason(err, authsdk.ErrorCodeInvalidRequest))

	clients, err := admin.ListClients(t.Context())
	require.NoError(t, err)
	require.Len(t, clients.Clients, 3)

	require.NoError(t, admin.DeleteClient(t.Context(), created.Client.ClientID))
	err = admin.DeleteClient(t.Context(), created.Client.ClientID)
	var oe *authsdk.OAuth2Error
	require.ErrorAs(t, err, &oe)
	require.Equal(t, http.StatusNotFound, oe.StatusCode)

	rekey, err := admin.RotateKeyring(t.Context())
	require.NoError(t, err)
	require.Equal(t, 2, rekey.Keys)
	require.NotEmpty(t, rekey.KeyMaterial)
}

func TestAdminDisabledWithoutToken(t *testing.T) {
	t.Parallel()

	h := httpx.AdminToken("")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/clients", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)

	live, err := f.sdk.GetLiveness(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)

	ready, err := f.sdk.GetReadiness(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
	require.NotNil(t, ready.Checks)
	require.Equal(t, "ok", ready.Checks.Database)
	require.Equal(t, "ok", ready.Checks.Keys)

	resp, err := http.Get(f.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "visageid_")
}

func TestPKCEChallengeMatchesServer(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)
	f.signup(t, "ada@example.com", redFace)

	pkce, err := authsdk.GeneratePKCEChallenge()
	require.NoError(t, err)
	sum := sha256.Sum256([]byte(pkce.Verifier))
	require.Equal(t, base64.RawURLEncoding.EncodeToString(sum[:]), pkce.Challenge)

	p := f.params()
	p.ClientID = f.public.ClientID
	p.PKCE = pkce
	_, err = f.sdk.AuthorizeAndExchange(t.Context(), authsdk.Credentials{ClientID: f.public.ClientID}, p, dataURL(t, redFace))
	require.NoError(t, err)
}

// newMultipart writes fields and an "image" file part into body and
// returns the Content-Type header to send with it.
func newMultipart(t *testing.T, body *bytes.Buffer, fields map[string]string, img []byte) string {
	t.Helper()
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	part, err := mw.CreateFormFile("image", "face.png")
	require.NoError(t, err)
	_, err = part.Write(img)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return mw.FormDataContentType()
}
