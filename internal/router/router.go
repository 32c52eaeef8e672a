package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // Echo web framework used for routing

	"github.com/iliyamo/bus-ticket-reservation/internal/handler"    // handlers implementing the endpoints
	"github.com/iliyamo/bus-ticket-reservation/internal/middleware" // JWT, role, rate-limit and cache middleware
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Load balancers and monitoring probe this endpoint.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes.  The
// unauthenticated operations live under /v1/auth and are rate limited,
// since login and register are the endpoints worth brute-forcing;
// protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, rl echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", rl)
	// Create a new account.  Accounts created here are always customers.
	g.POST("/register", a.Register)
	// Exchange credentials for an access/refresh token pair.
	g.POST("/login", a.Login)
	// Rotate the refresh token and mint a new access token.
	g.POST("/refresh", a.Refresh)
	// Mint a new access token without rotating the refresh token.
	g.POST("/refresh-access", a.RefreshAccess)
	// Invalidate a session.  Works with either a bearer token (revokes all
	// sessions of the user) or a refresh_token in the body (revokes one).
	g.POST("/logout", a.Logout)

	// Routes below require a valid access token regardless of role.
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("CUSTOMER", "ADMIN"))
	auth.GET("/me", a.Me)
}

// RegisterPublic registers the unauthenticated browse endpoints: trip
// search, trip details and the live seat map.  These are the hot read
// paths, so they sit behind the shared response cache; the cache key is
// the route plus query string and no caller identity is involved.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache echo.MiddlewareFunc) {
	// Search published trips by origin, destination and date.
	e.GET("/v1/search/trips", p.SearchTrips, cache)
	// Trip details for one schedule: route, bus, operator, price, seats left.
	e.GET("/v1/trips/:id", p.GetTrip, cache)
	// Seat map of a trip.  Taken seats are marked but passenger details
	// never leave the server.
	e.GET("/v1/trips/:id/seats", p.GetTripSeats, cache)
}
