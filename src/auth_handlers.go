package main

import (
	"eventhub/src/boot"

	"github.com/gin-gonic/gin"
)

func authHandlers(g *gin.RouterGroup, app *boot.App) *gin.RouterGroup {
	auth := g.Group("/auth")
	auth.
		POST("/register", func(ctx *gin.Context) {
			res, status, err := app.Auth.Register(ctx)
			if err != nil {
				respondStatus(ctx, status, err)
				return
			}
			ctx.JSON(status, res)
		}).
		POST("/login", func(ctx *gin.Context) {
			res, status, err := app.Auth.Login(ctx)
			if err != nil {
				respondStatus(ctx, status, err)
				return
			}
			ctx.JSON(status, res)
		})
	return g
}

func meHandlers(g *gin.RouterGroup, app *boot.App) *gin.RouterGroup {
	g.GET("/auth/me", func(ctx *gin.Context) {
		user, status, err := app.Auth.Me(ctx.Request.Context(), ctx.GetUint("id"))
		if err != nil {
			respondStatus(ctx, status, err)
			return
		}
		ctx.JSON(status, user)
	})
	return g
}
