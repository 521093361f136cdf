package main

import (
	"eventhub/src/boot"
	"eventhub/src/types"
	"net/http"

	"github.com/gin-gonic/gin"
)

func adminHandlers(g *gin.RouterGroup, app *boot.App) *gin.RouterGroup {
	g.
		GET("/dashboard", func(ctx *gin.Context) {
			dashboard, err := app.Admin.Dashboard(ctx.Request.Context())
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, dashboard)
		}).
		GET("/events", func(ctx *gin.Context) {
			var query types.AdminListQuery
			if err := ctx.ShouldBindQuery(&query); err != nil {
				bindError(ctx, err)
				return
			}
			page, err := app.Admin.ListEvents(ctx.Request.Context(), query)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, page)
		}).
		GET("/bookings", func(ctx *gin.Context) {
			var query types.AdminListQuery
			if err := ctx.ShouldBindQuery(&query); err != nil {
				bindError(ctx, err)
				return
			}
			page, err := app.Admin.ListBookings(ctx.Request.Context(), query)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, page)
		}).
		GET("/users", func(ctx *gin.Context) {
			var query types.AdminListQuery
			if err := ctx.ShouldBindQuery(&query); err != nil {
				bindError(ctx, err)
				return
			}
			page, err := app.Admin.ListUsers(ctx.Request.Context(), query)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, page)
		}).
		PUT("/events/:id/status", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				bindError(ctx, err)
				return
			}
			var body types.UpdateEventStatusRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				bindError(ctx, err)
				return
			}
			event, err := app.Admin.UpdateEventStatus(ctx.Request.Context(), params.ID, body.Status)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, event)
		}).
		PUT("/bookings/:id/status", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				bindError(ctx, err)
				return
			}
			var body types.UpdateBookingStatusRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				bindError(ctx, err)
				return
			}
			booking, err := app.Admin.UpdateBookingStatus(ctx.Request.Context(), params.ID, body.Status)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, booking)
		}).
		POST("/bookings/:id/refund", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				bindError(ctx, err)
				return
			}
			booking, err := app.Payments.Refund(ctx.Request.Context(), params.ID)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, booking)
		})
	return g
}
