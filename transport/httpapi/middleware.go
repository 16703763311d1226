package httpapi

import (
	"chat-hub/domain"
	"chat-hub/services"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const currentUserKey = "currentUser"

// TokenAuthMiddleware resolves the bearer token to a user and stores it in
// the gin context. Websocket clients cannot set headers from the browser,
// so a "token" query parameter is accepted as a fallback.
func TokenAuthMiddleware(auth services.IAuthService) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := bearerToken(ctx)
		if token == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		user, err := auth.Identify(token)
		if err != nil {
			abortWithError(ctx, err)
			return
		}

		ctx.Set(currentUserKey, user)
		ctx.Next()
	}
}

func bearerToken(ctx *gin.Context) string {
	header := ctx.GetHeader("Authorization")
	if after, found := strings.CutPrefix(header, "Bearer "); found {
		return after
	}
	return ctx.Query("token")
}

func currentUser(ctx *gin.Context) domain.User {
	return ctx.MustGet(currentUserKey).(domain.User)
}

func currentUserID(ctx *gin.Context) domain.UserID {
	return currentUser(ctx).ID
}
