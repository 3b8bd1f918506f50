package http

import (
	"net/http"

	"fleetuptime/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionCookie names the cookie that scopes cached results to a browser.
const SessionCookie = "uptime_session"

const sessionKey = "session_id"

// SessionMiddleware makes sure every request carries a session id, issuing a
// fresh one when the cookie is absent or malformed.
func SessionMiddleware(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(SessionCookie)
		if err != nil || !utils.IsSessionID(id) {
			id = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(SessionCookie, id, 0, "/", "", secure, true)
		}
		c.Set(sessionKey, id)
		c.Next()
	}
}

func sessionID(c *gin.Context) string {
	return c.GetString(sessionKey)
}
