package main

import (
	"eventhub/src/boot"
	"eventhub/src/middlewares"
	"eventhub/src/types"
	"net/http"

	"github.com/gin-gonic/gin"
)

func publicPaymentHandlers(g *gin.RouterGroup, app *boot.App) *gin.RouterGroup {
	g.GET("/payments/paypal-client-id", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, app.Payments.ClientConfig())
	})
	return g
}

func paymentHandlers(g *gin.RouterGroup, app *boot.App) *gin.RouterGroup {
	g.
		POST("/payments/create-paypal-order", func(ctx *gin.Context) {
			var body types.CreatePayPalOrderRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				bindError(ctx, err)
				return
			}
			order, err := app.Payments.CreateOrder(ctx.Request.Context(), body.BookingID, middlewares.Viewer(ctx))
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, order)
		}).
		POST("/payments/capture-paypal-payment", func(ctx *gin.Context) {
			var body types.CapturePayPalPaymentRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				bindError(ctx, err)
				return
			}
			capture, err := app.Payments.Capture(ctx.Request.Context(), body.OrderID, body.BookingID, middlewares.Viewer(ctx))
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, capture)
		})
	return g
}
