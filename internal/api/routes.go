package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mlaferte/causerie/adapters/voices"
	"github.com/mlaferte/causerie/internal/auth"
	"github.com/mlaferte/causerie/internal/websocket"
)

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, hub *websocket.Hub, logger *zap.Logger) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "causerie-server",
		})
	})

	// API v1 routes
	v1 := e.Group("/api/v1")

	// Session APIs
	v1.POST("/sessions", func(c echo.Context) error {
		return createSession(c, logger)
	})
	v1.GET("/voices", getVoices)

	// WebSocket endpoint with JWT validation
	e.GET("/ws", func(c echo.Context) error {
		return websocketWithAuth(hub, c, logger)
	})
}

// createSession issues a token for a fresh practice session. Sessions are
// anonymous: all state lives on the WebSocket connection.
func createSession(c echo.Context, logger *zap.Logger) error {
	sessionID := uuid.NewString()

	token, err := auth.GenerateSessionToken(sessionID)
	if err != nil {
		logger.Error("Failed to generate session token",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate session token",
		})
	}

	// Expiration matches the JWT claims (24 hours from now)
	expiresAt := time.Now().Add(24 * time.Hour)

	logger.Info("Session created", zap.String("session_id", sessionID))

	return c.JSON(http.StatusOK, SessionAuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		SessionID: sessionID,
	})
}

func getVoices(c echo.Context) error {
	return c.JSON(http.StatusOK, VoicesResponse{
		Voices:       voices.Catalog(),
		DefaultVoice: voices.DefaultVoice,
	})
}

// websocketWithAuth handles WebSocket connections with JWT authentication
func websocketWithAuth(hub *websocket.Hub, c echo.Context, logger *zap.Logger) error {
	// Extract JWT token from Authorization header or query parameter.
	// Browsers cannot set headers on WebSocket upgrades, so the query
	// parameter is the common path.
	var token string
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader != "" && len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		token = authHeader[7:]
	}
	if token == "" {
		token = c.QueryParam("token")
	}

	if token == "" {
		logger.Warn("WebSocket connection rejected: missing token")
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "missing_token",
			Message: "JWT token is required",
		})
	}

	// Validate JWT token
	claims, err := auth.ValidateToken(token)
	if err != nil {
		logger.Warn("WebSocket connection rejected: invalid token", zap.Error(err))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired JWT token",
		})
	}

	sessionID := claims.SessionID
	if sessionID == "" {
		logger.Error("WebSocket connection rejected: missing session ID in token")
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_token_claims",
			Message: "Session ID not found in token",
		})
	}

	logger.Info("WebSocket connection authenticated",
		zap.String("session_id", sessionID))

	return websocket.HandleConnection(hub, c, sessionID, logger)
}
