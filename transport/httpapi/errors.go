package httpapi

import (
	"chat-hub/errors"
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// abortWithError maps domain sentinels to HTTP statuses. Unknown errors
// become a 500 with a generic body so internals never leak.
func abortWithError(ctx *gin.Context, err error) {
	switch {
	case stderrors.Is(err, errors.ErrUserNotFound),
		stderrors.Is(err, errors.ErrChatNotFound),
		stderrors.Is(err, errors.ErrMessageNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case stderrors.Is(err, errors.ErrNotMember):
		ctx.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case stderrors.Is(err, errors.ErrUsernameTaken),
		stderrors.Is(err, errors.ErrAlreadyMember):
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case stderrors.Is(err, errors.ErrInvalidPayload):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case stderrors.Is(err, errors.ErrInvalidPassword),
		stderrors.Is(err, errors.ErrInvalidToken):
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case stderrors.Is(err, errors.ErrStoreUnavailable):
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
	ctx.Abort()
}
