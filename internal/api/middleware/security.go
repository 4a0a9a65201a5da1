package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
	"go.uber.org/zap"
)

const contentSecurityPolicy = "default-src 'self'; " +
	"img-src 'self' data: https://res.cloudinary.com; " +
	"media-src 'self' https://res.cloudinary.com; " +
	"connect-src 'self' https://api.cloudinary.com; " +
	"style-src 'self' 'unsafe-inline'; " +
	"frame-ancestors 'none'"

// SecurityHeaders sets hardening headers. HTTPS redirects and HSTS apply
// only in production.
func SecurityHeaders(production bool, logger *zap.Logger) gin.HandlerFunc {
	sec := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		PermissionsPolicy:     "camera=(), microphone=(), geolocation=()",
		ContentSecurityPolicy: contentSecurityPolicy,
		SSLRedirect:           production,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		STSSeconds:            31536000,
		STSIncludeSubdomains:  true,
		IsDevelopment:         !production,
	})

	return func(c *gin.Context) {
		if err := sec.Process(c.Writer, c.Request); err != nil {
			logger.Debug("secure middleware stopped request", zap.Error(err))
			c.Abort()
			return
		}
		// Process already wrote a redirect.
		if status := c.Writer.Status(); status > 300 && status < 399 {
			c.Abort()
			return
		}
		c.Next()
	}
}
