package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/aussiebroadwan/visageid/api/idp" // Swagger docs
	"github.com/aussiebroadwan/visageid/internal/idp/service"
	"github.com/aussiebroadwan/visageid/internal/idp/store"
	"github.com/aussiebroadwan/visageid/pkg/httpx"
	"github.com/aussiebroadwan/visageid/pkg/jwtx"
	"github.com/aussiebroadwan/visageid/pkg/slogx"
)

// Options tune request handling. Zero values select the defaults.
type Options struct {
	// AdminToken guards /admin/. Empty disables the admin API.
	AdminToken string

	// VerifyTimeout bounds a whole face verification request. Defaults to 15s.
	VerifyTimeout time.Duration

	// FaceDebug adds match scores to rejected verify responses.
	FaceDebug bool

	// MaxImageBytes caps a single decoded image. Defaults to 8 MiB.
	MaxImageBytes int

	// MaxImagePixels caps width*height of a capture frame. Defaults to
	// facekit.DefaultMaxPixels.
	MaxImagePixels int

	// Limits overrides the httpx rate limit profiles.
	Limits *RateLimits
}

// RateLimits groups the profiles applied to each class of route.
type RateLimits struct {
	Strict   httpx.RateLimitConfig
	Moderate httpx.RateLimitConfig
	Lenient  httpx.RateLimitConfig
	Public   httpx.RateLimitConfig
}

func defaultRateLimits() RateLimits {
	return RateLimits{
		Strict:   httpx.StrictLimit,
		Moderate: httpx.ModerateLimit,
		Lenient:  httpx.LenientLimit,
		Public:   httpx.PublicLimit,
	}
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeyManager
	issuer       string
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store               store.Store
	AuthorizeService    *service.AuthorizeService
	TokenService        *service.TokenService
	EnrollmentService   *service.EnrollmentService
	UserService         *service.UserService
	OrganizationService *service.OrganizationService
	ClientService       *service.ClientService
	RekeyService        *service.RekeyService

	// Gatherer backs /metrics. Nil leaves the route unregistered.
	Gatherer prometheus.Gatherer

	Options Options
}

func NewRouter(
	keys *jwtx.KeyManager,
	issuer, buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		issuer:       issuer,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		requestMetaMiddleware,
	}

	return r
}

func (r *Router) ApplyRoutes() {
	limits := defaultRateLimits()
	if r.Options.Limits != nil {
		limits = *r.Options.Limits
	}

	r.registerDiscovery(limits)
	r.registerOAuth(limits)
	r.registerAccount(limits)
	r.registerAdmin(limits)
	r.registerSystem(limits)

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			visageid Identity Provider API
//	@version		0.1.0
//	@description	OpenID Connect provider whose only login factor is a face capture.
//	@description
//	@description				ID tokens and JWT access tokens are signed with RS256 and can be verified using the JWKS endpoint.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/visageid
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Access token issued by /oauth/token. Format: "Bearer {token}".
//
//	@securityDefinitions.apikey	AdminToken
//	@in							header
//	@name						Authorization
//	@description				Static operator token from ADMIN_TOKEN. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// verifyBearer resolves an access token to the principal BearerAuth stores
// in the request context.
func (r *Router) verifyBearer(ctx context.Context, raw string) (httpx.Principal, error) {
	tok, err := r.TokenService.VerifyAccessToken(ctx, raw)
	if err != nil {
		return httpx.Principal{}, err
	}
	return httpx.Principal{
		Subject:   tok.UserID,
		ClientID:  tok.ClientID,
		Scope:     tok.Scope,
		ExpiresAt: tok.ExpiresAt,
	}, nil
}

func (r *Router) maxImageBytes() int {
	if r.Options.MaxImageBytes > 0 {
		return r.Options.MaxImageBytes
	}
	return 8 << 20
}

func (r *Router) registerDiscovery(limits RateLimits) {
	// Public metadata - high limit
	r.Mux.Handle("GET /.well-known/openid-configuration",
		httpx.Chain(DiscoveryHandler(r.issuer),
			httpx.RateLimitByIP(limits.Public),
		),
	)
	r.Mux.Handle("GET /oauth/jwks.json",
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(limits.Public),
		),
	)
}

func (r *Router) registerOAuth(limits RateLimits) {
	authorizeHandler := &AuthorizeHandler{
		AuthorizeService: r.AuthorizeService,
		MaxImageBytes:    r.maxImageBytes(),
		MaxImagePixels:   r.Options.MaxImagePixels,
		FaceDebug:        r.Options.FaceDebug,
	}

	// GET /authorize - lenient rate limit (renders the capture page)
	r.Mux.Handle("GET /oauth/authorize",
		httpx.Chain(http.HandlerFunc(authorizeHandler.HandleGet),
			httpx.RateLimitByIP(limits.Lenient),
		),
	)

	// POST /authorize/verify - strict rate limit, every request runs the
	// perception pipeline. The timeout covers liveness, embedding and match.
	verifyTimeout := r.Options.VerifyTimeout
	if verifyTimeout <= 0 {
		verifyTimeout = 15 * time.Second
	}
	r.Mux.Handle("POST /oauth/authorize/verify",
		httpx.Chain(
			http.TimeoutHandler(http.HandlerFunc(authorizeHandler.HandleVerify), verifyTimeout, `{"error":"verification timed out"}`),
			httpx.RateLimitByIP(limits.Strict),
		),
	)

	tokenHandler := &TokenHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /oauth/token",
		httpx.Chain(tokenHandler,
			httpx.RateLimitByIP(limits.Moderate),
		),
	)

	revokeHandler := &RevokeHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /oauth/revoke",
		httpx.Chain(revokeHandler,
			httpx.RateLimitByIP(limits.Moderate),
		),
	)

	introspectHandler := &IntrospectHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /oauth/introspect",
		httpx.Chain(introspectHandler,
			httpx.RateLimitByIP(limits.Moderate),
		),
	)

	userInfoHandler := &UserInfoHandler{UserService: r.UserService}
	r.Mux.Handle("GET /oauth/userinfo",
		httpx.Chain(userInfoHandler,
			httpx.BearerAuth(r.verifyBearer),
			httpx.RequireAnyScope("openid"),
			httpx.RateLimitByUser(limits.Lenient),
		),
	)

	logoutHandler := &LogoutHandler{AuthorizeService: r.AuthorizeService}
	r.Mux.Handle("GET /oauth/logout",
		httpx.Chain(logoutHandler,
			httpx.RateLimitByIP(limits.Lenient),
		),
	)
}

func (r *Router) registerAccount(limits RateLimits) {
	h := &FaceAccountHandler{
		EnrollmentService: r.EnrollmentService,
		MaxImageBytes:     r.maxImageBytes(),
		MaxImagePixels:    r.Options.MaxImagePixels,
	}

	// Signup is public and runs the pipeline - strict by IP
	r.Mux.Handle("POST /account/face/signup",
		httpx.Chain(http.HandlerFunc(h.HandleSignup),
			httpx.RateLimitByIP(limits.Strict),
		),
	)

	securedEnroll := httpx.Chain(http.HandlerFunc(h.HandleEnroll),
		httpx.BearerAuth(r.verifyBearer),
		httpx.RateLimitByUser(limits.Strict),
	)
	securedReenroll := httpx.Chain(http.HandlerFunc(h.HandleReenroll),
		httpx.BearerAuth(r.verifyBearer),
		httpx.RateLimitByUser(limits.Strict),
	)

	r.Mux.Handle("POST /account/face/enroll", securedEnroll)
	r.Mux.Handle("POST /account/face/reenroll", securedReenroll)
}

func (r *Router) registerAdmin(limits RateLimits) {
	admin := func(h http.HandlerFunc) http.Handler {
		return httpx.Chain(h,
			httpx.AdminToken(r.Options.AdminToken),
			httpx.RateLimitByIP(limits.Moderate),
		)
	}

	orgs := &OrganizationsHandler{OrganizationService: r.OrganizationService}
	r.Mux.Handle("POST /admin/organizations", admin(orgs.HandleCreate))
	r.Mux.Handle("GET /admin/organizations", admin(orgs.HandleList))

	clients := &ClientsHandler{ClientService: r.ClientService}
	r.Mux.Handle("POST /admin/clients", admin(clients.HandleCreate))
	r.Mux.Handle("GET /admin/clients", admin(clients.HandleList))
	r.Mux.Handle("DELETE /admin/clients/{client_id}", admin(clients.HandleDelete))
	r.Mux.Handle("POST /admin/clients/{client_id}/rotate-secret", admin(clients.HandleRotateSecret))

	keyring := &KeyringHandler{RekeyService: r.RekeyService}
	r.Mux.Handle("POST /admin/keyring/rotate", admin(keyring.HandleRotate))
}

func (r *Router) registerSystem(limits RateLimits) {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(limits.Lenient),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys),
			httpx.RateLimitByIP(limits.Lenient),
		),
	)

	if r.Gatherer != nil {
		r.Mux.Handle("GET /metrics", promhttp.HandlerFor(r.Gatherer, promhttp.HandlerOpts{}))
	}
}
