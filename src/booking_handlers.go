package main

import (
	"bytes"
	"eventhub/src/booking"
	"eventhub/src/boot"
	"eventhub/src/middlewares"
	"eventhub/src/types"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeqown/go-qrcode"
)

// ticketPayload is what the door scanner reads off the QR code.
func ticketPayload(b *booking.Ticket) string {
	return fmt.Sprintf("EVENTHUB|%s|%d|%d", b.Reference, b.EventID, b.Quantity)
}

func bookingHandlers(g *gin.RouterGroup, app *boot.App) *gin.RouterGroup {
	g.
		POST("/bookings", func(ctx *gin.Context) {
			var body types.CreateBookingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				bindError(ctx, err)
				return
			}
			created, err := app.Bookings.Create(ctx.Request.Context(), booking.CreateInput{
				UserID:  ctx.GetUint("id"),
				EventID: body.EventID,
				Tickets: body.Tickets,
				AttendeeInfo: types.AttendeeInfo{
					Name:  strings.TrimSpace(body.AttendeeInfo.Name),
					Email: strings.TrimSpace(body.AttendeeInfo.Email),
					Phone: strings.TrimSpace(body.AttendeeInfo.Phone),
				},
				PaymentMethod: body.PaymentMethod,
			})
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusCreated, created)
		}).
		GET("/bookings/my-bookings", func(ctx *gin.Context) {
			bookings, err := app.Bookings.ListForUser(ctx.Request.Context(), ctx.GetUint("id"))
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, bookings)
		}).
		GET("/bookings/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				bindError(ctx, err)
				return
			}
			b, err := app.Bookings.GetForViewer(ctx.Request.Context(), params.ID, middlewares.Viewer(ctx))
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, b)
		}).
		GET("/bookings/:id/qrcode", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				bindError(ctx, err)
				return
			}
			ticket, err := app.Bookings.Ticket(ctx.Request.Context(), params.ID, middlewares.Viewer(ctx))
			if err != nil {
				respondError(ctx, err)
				return
			}
			qrc, err := qrcode.New(ticketPayload(ticket))
			if err != nil {
				respondError(ctx, err)
				return
			}
			var buf bytes.Buffer
			if err := qrc.SaveTo(&buf); err != nil {
				respondError(ctx, err)
				return
			}
			ctx.Header("Content-Disposition", fmt.Sprintf(`inline; filename="%s.jpeg"`, ticket.Reference))
			ctx.Data(http.StatusOK, "image/jpeg", buf.Bytes())
		})
	return g
}
