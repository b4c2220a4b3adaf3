package utils

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	accessCookie  = "accessToken"
	refreshCookie = "refreshToken"
)

func SetAuthCookies(c *gin.Context, accessToken, refreshToken string) {
	setCookie(c, accessCookie, accessToken, int(AccessTokenExpiry/time.Second))
	setCookie(c, refreshCookie, refreshToken, int(RefreshTokenExpiry/time.Second))
}

func ClearAuthCookies(c *gin.Context) {
	setCookie(c, accessCookie, "", -1)
	setCookie(c, refreshCookie, "", -1)
}

// RefreshTokenFromCookie returns the refresh token cookie, if any.
func RefreshTokenFromCookie(c *gin.Context) string {
	v, err := c.Cookie(refreshCookie)
	if err != nil {
		return ""
	}
	return v
}

func setCookie(c *gin.Context, name, value string, maxAge int) {
	// Plain HTTP is only allowed in gin debug mode.
	secure := gin.Mode() != gin.DebugMode
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(name, value, maxAge, "/", "", secure, true)
}
