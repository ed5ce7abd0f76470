package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"foodshare/internal/auth"
	"foodshare/internal/config"
	"foodshare/internal/errors"
	"foodshare/internal/handler"
	"foodshare/internal/model"
	"foodshare/internal/repository"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	userRepo repository.UserRepository,
	authHandler *handler.AuthHandler,
	listingHandler *handler.ListingHandler,
	adminHandler *handler.AdminHandler,
) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Add validator
	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// Rewritten image URLs resolve against this prefix.
	e.Static("/uploads", cfg.UploadDir)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.POST("/auth/logout", authHandler.Logout)

	// Secured routes: bearer JWT, then identity resolution against the user
	// table so tokens for deleted accounts fail like any other bad token.
	secured := api.Group("",
		echojwt.WithConfig(echojwt.Config{
			SigningKey:  []byte(cfg.JWTSecret),
			TokenLookup: "header:" + echo.HeaderAuthorization,
			NewClaimsFunc: func(c echo.Context) jwt.Claims {
				return new(auth.Claims)
			},
			ErrorHandler: func(c echo.Context, err error) error {
				return unauthorized()
			},
		}),
		resolveIdentity(userRepo),
	)

	// Listing routes
	secured.GET("/listings/available", listingHandler.ListAvailable, requireRole(model.RoleReceiver))
	secured.GET("/listings/mine", listingHandler.ListMine, requireRole(model.RoleDonor))
	secured.GET("/listings/claimed", listingHandler.ListClaimed, requireRole(model.RoleReceiver))
	secured.POST("/listings", listingHandler.Create, requireRole(model.RoleDonor))
	secured.PUT("/listings/:id", listingHandler.Update, requireRole(model.RoleDonor))
	secured.DELETE("/listings/:id", listingHandler.Delete, requireRole(model.RoleDonor, model.RoleAdmin))
	secured.POST("/listings/:id/claim", listingHandler.Claim, requireRole(model.RoleReceiver))

	// Admin routes
	adminGroup := secured.Group("/admin", requireRole(model.RoleAdmin))
	adminGroup.GET("/users", adminHandler.ListUsers)
	adminGroup.GET("/listings", adminHandler.ListListings)
	adminGroup.GET("/dashboard", adminHandler.Dashboard)
}

// resolveIdentity loads the authenticated user referenced by the JWT and
// stores it in the request context. Every failure maps to the same
// unauthorized response regardless of cause.
func resolveIdentity(userRepo repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := c.Get("user").(*jwt.Token)
			if !ok {
				return unauthorized()
			}
			claims, ok := token.Claims.(*auth.Claims)
			if !ok {
				return unauthorized()
			}
			id, err := uuid.Parse(claims.UserID)
			if err != nil {
				return unauthorized()
			}
			user, err := userRepo.FindByID(c.Request().Context(), id)
			if err != nil {
				return unauthorized()
			}
			c.Set("identity", user)
			return next(c)
		}
	}
}

// requireRole permits the route only for the given roles.
func requireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := c.Get("identity").(*model.User)
			if !ok || user == nil {
				return unauthorized()
			}
			for _, role := range roles {
				if user.Role == role {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, errors.ErrorResponse{
				Error: "operation not permitted",
				Code:  "FORBIDDEN",
			})
		}
	}
}

func unauthorized() error {
	return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
		Error: "unauthorized",
		Code:  "UNAUTHORIZED",
	})
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
