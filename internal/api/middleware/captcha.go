package middleware

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/Shubhamkumarpatel70/milkrecord/internal/captcha"
)

const (
	// ContextKeyIsHumanVerified holds the key for captcha status in Gin context.
	ContextKeyIsHumanVerified = "isHumanVerified"
)

// CaptchaMiddleware verifies a Cloudflare Turnstile challenge (X-C-V header)
// when present and records the outcome in the context. It never aborts;
// the rate limiter and protected handlers decide what non-human means.
func CaptchaMiddleware(verifier captcha.ITurnstileVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		isHuman := false
		if challenge := c.GetHeader("X-C-V"); challenge != "" {
			verified, err := verifier.Verify(c.Request.Context(), challenge, c.ClientIP())
			if err != nil {
				log.Printf("Error verifying Turnstile token: %v", err)
			} else {
				isHuman = verified
			}
		}

		c.Set(ContextKeyIsHumanVerified, isHuman)
		c.Next()
	}
}
