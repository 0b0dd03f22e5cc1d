package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/existflow/joyful/internal/logger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newRequestID() string {
	return uuid.NewString()
}

// requestLogger logs every request and its outcome
func requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		req := c.Request()

		err := next(c)

		res := c.Response()
		logger.Info("HTTP Response",
			logger.F("method", req.Method),
			logger.F("uri", req.RequestURI),
			logger.F("status", res.Status),
			logger.F("size", res.Size),
			logger.F("request_id", res.Header().Get(echo.HeaderXRequestID)),
			logger.F("duration", time.Since(start).String()))

		return err
	}
}

// authMiddleware checks the bearer JWT and stores the user id in the context
func (s *Server) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		auth := c.Request().Header.Get("Authorization")
		if auth == "" {
			return fail(c, http.StatusUnauthorized, "Missing authorization header")
		}

		token := strings.TrimPrefix(auth, "Bearer ")
		if token == auth {
			return fail(c, http.StatusUnauthorized, "Invalid authorization format")
		}

		userID, err := s.parseToken(token)
		if err != nil {
			if log := logger.WithFields(logger.F("request_id", c.Response().Header().Get(echo.HeaderXRequestID))); log != nil {
				log.Debug("Rejected token", logger.F("error", err))
			}
			return fail(c, http.StatusUnauthorized, "Invalid or expired token")
		}

		c.Set("user_id", userID)
		return next(c)
	}
}

// issueToken signs an access token for userID
func (s *Server) issueToken(userID int64) (string, error) {
	now := s.cfg.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.JWTSecret)
}

func (s *Server) parseToken(token string) (int64, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(t *jwt.Token) (interface{}, error) { return s.cfg.JWTSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.cfg.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(claims.Subject, 10, 64)
}

func userID(c echo.Context) int64 {
	id, _ := c.Get("user_id").(int64)
	return id
}
