package middleware

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"qr-psp-gateway/config"
	"qr-psp-gateway/internal/core/ports"
	"qr-psp-gateway/pkg/apperror"
	"qr-psp-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// Signed-protocol headers.
	HeaderHash           = "H-HASH"
	HeaderPSPToken       = "H-PSP-TOKEN"
	HeaderPSPID          = "H-PSP-ID"
	HeaderSigningVersion = "H-SIGNING-VERSION"

	// Correlation header, accepted inbound and echoed on every reply.
	HeaderRequestID = "X-Request-Id"

	// Context keys.
	CtxActor     = "actor"
	CtxRequestID = "request_id"
)

// SignatureAuth verifies the H-HASH signature of a signed-protocol request
// before any JSON decoding happens. The canonical input is the raw body
// when present, otherwise the full request URL, so the body is read here
// and restored for the handler.
func SignatureAuth(sig ports.SignatureService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body []byte
		if c.Request.Body != nil {
			var err error
			body, err = io.ReadAll(c.Request.Body)
			if err != nil {
				response.Error(c, apperror.BadRequest("cannot read request body"))
				c.Abort()
				return
			}
			c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
		}

		res := sig.Verify(body, RequestURL(c), c.GetHeader(HeaderHash))
		if !res.OK() {
			log.Warn().
				Str("path", c.Request.URL.Path).
				Str("psp_id", c.GetHeader(HeaderPSPID)).
				Str("reason", res.Reason).
				Msg("signature rejected")
			response.Error(c, apperror.SignatureInvalid(res.Reason))
			c.Abort()
			return
		}

		if actor := c.GetHeader(HeaderPSPID); actor != "" {
			c.Set(CtxActor, actor)
		}
		c.Next()
	}
}

// RequestURL reconstructs the URL the counterparty signed for body-less
// requests.
func RequestURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host + c.Request.URL.RequestURI()
}

// AdminJWT guards the webhook-registration API with a Bearer token signed
// by the shared admin secret.
func AdminJWT(cfg config.AdminConfig, log zerolog.Logger) gin.HandlerFunc {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			response.Error(c, apperror.AccessDenied("missing bearer token"))
			c.Abort()
			return
		}

		token, err := jwt.Parse(strings.TrimPrefix(auth, "Bearer "), func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(cfg.JWTSecret), nil
		}, opts...)
		if err != nil || !token.Valid {
			log.Warn().Err(err).Str("path", c.Request.URL.Path).Msg("admin token rejected")
			response.Error(c, apperror.AccessDenied("invalid token"))
			c.Abort()
			return
		}

		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			if sub, _ := claims.GetSubject(); sub != "" {
				c.Set(CtxActor, sub)
			}
		}
		c.Next()
	}
}

// MaxBodySize limits the request body size. Once the limit is exceeded
// the reader returns an error and the request is rejected.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// RequestID assigns every request a correlation id. An inbound
// X-Request-Id is trusted if present, otherwise a fresh uuid is issued.
// The id is stored in the gin context and echoed on the reply.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(CtxRequestID, id)
		c.Writer.Header().Set(HeaderRequestID, id)
		c.Next()
	}
}

// GetRequestID returns the correlation id assigned by RequestID, or an
// empty string when the middleware did not run.
func GetRequestID(c *gin.Context) string {
	return c.GetString(CtxRequestID)
}

// RequestLogger logs every HTTP request with latency and status.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("request_id", GetRequestID(c)).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

// Recovery turns a handler panic into the standard failure envelope.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				response.Error(c, apperror.SystemError(fmt.Errorf("panic: %v", r)))
				c.Abort()
			}
		}()
		c.Next()
	}
}
