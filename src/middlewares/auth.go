package middlewares

import (
	"eventhub/src/models"
	"eventhub/src/types"
	"eventhub/src/utils"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Auth resolves the bearer token to a user. The role is read from the
// database, not the token, so a demotion takes effect immediately.
func Auth(db *gorm.DB, secret string, log *logrus.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		bearerToken := ctx.Request.Header.Get("Authorization")
		reqToken, ok := strings.CutPrefix(bearerToken, "Bearer ")
		if !ok || strings.TrimSpace(reqToken) == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed authorization header"})
			return
		}
		uid, _, err := utils.ParseJWT(secret, strings.TrimSpace(reqToken))
		if err != nil {
			log.WithError(err).Debug("token rejected")
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var user models.User
		err = db.WithContext(ctx).
			Model(&models.User{}).
			Select("id", "email", "role").
			Where("id = ?", uid).
			First(&user).
			Error
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		ctx.Set("id", user.ID)
		ctx.Set("email", user.Email)
		ctx.Set("role", string(user.Role))
		ctx.Next()
	}
}

func RequireAdmin(ctx *gin.Context) {
	if types.Role(ctx.GetString("role")) != types.ROLE_ADMIN {
		ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": types.ErrAdminRequired.Error()})
		return
	}
	ctx.Next()
}

func Viewer(ctx *gin.Context) types.Viewer {
	return types.Viewer{ID: ctx.GetUint("id"), Role: types.Role(ctx.GetString("role"))}
}
