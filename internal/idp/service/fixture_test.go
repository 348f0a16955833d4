package service_test

import (
	"context"
	"image"
	"image/color"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/visageid/internal/idp/domain"
	"github.com/aussiebroadwan/visageid/internal/idp/metrics"
	"github.com/aussiebroadwan/visageid/internal/idp/service"
	"github.com/aussiebroadwan/visageid/internal/idp/store/drivers/sqlite"
	"github.com/aussiebroadwan/visageid/pkg/cryptox"
	"github.com/aussiebroadwan/visageid/pkg/facekit"
	"github.com/aussiebroadwan/visageid/pkg/idx"
	"github.com/aussiebroadwan/visageid/pkg/jwtx"
)

const (
	testIssuer   = "https://idp.test"
	testRedirect = "https://rp.test/callback"
)

var testSigningKey = sync.OnceValues(func() ([]byte, error) {
	return cryptox.GenerateRSAKey(2048)
})

// env wires the services over an in-memory store the way app does.
type env struct {
	store     *sqlite.Store
	keyring   *cryptox.Keyring
	codec     *facekit.Codec
	pipeline  *facekit.Pipeline
	keys      *jwtx.KeyManager
	metrics   *metrics.Metrics
	authorize *service.AuthorizeService
	tokens    *service.TokenService
	enroll    *service.EnrollmentService
	orgs      *service.OrganizationService
	clients   *service.ClientService

	org          domain.Organization
	public       domain.Client
	confidential domain.Client
	secret       string
}

func newEnv(t *testing.T) *env {
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

	keyring, err := cryptox.NewKeyring([]byte("first-embedding-key"))
	require.NoError(t, err)
	codec := facekit.NewCodec(keyring)

	pipeline := &facekit.Pipeline{
		Liveness: facekit.NewHeuristicLiveness(),
		Embedder: facekit.MeanColorEmbedder{},
	}
	m := metrics.New(prometheus.NewRegistry())

	e := &env{
		store:    st,
		keyring:  keyring,
		codec:    codec,
		pipeline: pipeline,
		keys:     km,
		metrics:  m,
		authorize: &service.AuthorizeService{
			Store:    st,
			Pipeline: pipeline,
			Gallery:  &service.Gallery{Store: st, Codec: codec},
			Policy:   facekit.DefaultPolicy(),
			CodeTTL:  time.Minute,
			Metrics:  m,
		},
		tokens: &service.TokenService{
			KeyManager:  km,
			Store:       st,
			Issuer:      testIssuer,
			AccessTTL:   10 * time.Minute,
			RefreshTTL:  time.Hour,
			IDTokenTTL:  10 * time.Minute,
			AccessAsJWT: true,
			Metrics:     m,
		},
		enroll:  &service.EnrollmentService{Store: st, Pipeline: pipeline, Codec: codec, Metrics: m},
		orgs:    &service.OrganizationService{Store: st},
		clients: &service.ClientService{Store: st},
	}

	e.org, err = e.orgs.CreateOrganization(ctx, "Acme", "")
	require.NoError(t, err)

	e.public, _, err = e.clients.CreateClient(ctx, service.CreateClientRequest{
		OrganizationID: e.org.ID,
		Name:           "spa",
		RedirectURIs:   []string{testRedirect},
	})
	require.NoError(t, err)

	e.confidential, e.secret, err = e.clients.CreateClient(ctx, service.CreateClientRequest{
		OrganizationID:         e.org.ID,
		Name:                   "backend",
		RedirectURIs:           []string{testRedirect},
		PostLogoutRedirectURIs: []string{"https://rp.test/bye"},
		Confidential:           true,
		PKCEEnforced:           true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, e.secret)

	return e
}

// face returns a frame whose mean colour is dominated by c. Alternate rows
// are darkened so the frame passes the heuristic liveness check.
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
	twinFace  = face(color.RGBA{R: 230, G: 60, B: 50, A: 255})
	greenFace = face(color.RGBA{R: 50, G: 230, B: 60, A: 255})
	darkFrame = image.NewRGBA(image.Rect(0, 0, 32, 32))
)

func capture(frames ...image.Image) facekit.Capture {
	return facekit.Capture{Frames: frames}
}

// signup creates a user enrolled with img.
func (e *env) signup(t *testing.T, email string, img image.Image) domain.User {
	t.Helper()
	u, err := e.enroll.Signup(context.Background(), service.SignupRequest{
		Email:       email,
		DisplayName: email,
		Capture:     capture(img),
	})
	require.NoError(t, err)
	return u
}

// verify runs a face login for client and returns the issued code.
func (e *env) verify(t *testing.T, client domain.Client, img image.Image, challenge, method string) *service.VerifyResult {
	t.Helper()
	res, err := e.authorize.Verify(context.Background(), service.VerifyRequest{
		ClientID:            client.ClientID,
		RedirectURI:         testRedirect,
		State:               "st-" + idx.New().String(),
		Nonce:               "n-1",
		Scope:               "openid profile",
		CodeChallenge:       challenge,
		CodeChallengeMethod: method,
		Capture:             capture(img),
	})
	require.NoError(t, err)
	return res
}

func discardLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }
