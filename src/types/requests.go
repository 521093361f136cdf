package types

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type VenueRequestBody struct {
	Name     string `json:"name" binding:"required"`
	Address  string `json:"address" binding:"required"`
	City     string `json:"city" binding:"required"`
	Capacity int    `json:"capacity" binding:"required,gt=0"`
}

type CreateEventRequestBody struct {
	Title            string           `json:"title" binding:"required,max=200"`
	Description      string           `json:"description" binding:"required"`
	Category         EventCategory    `json:"category" binding:"required,eventcategory"`
	Venue            VenueRequestBody `json:"venue" binding:"required"`
	Date             string           `json:"date" binding:"required"`
	StartTime        string           `json:"startTime" binding:"required,hhmm"`
	EndTime          string           `json:"endTime" binding:"required,hhmm"`
	Status           EventStatus      `json:"status" binding:"omitempty,eventstatus"`
	Featured         bool             `json:"featured"`
	Tags             []string         `json:"tags"`
	Pricing          Pricing          `json:"pricing" binding:"pricing"`
	AvailableTickets TierCounts       `json:"availableTickets" binding:"tiercounts"`
}

// UpdateEventRequestBody deliberately has no ticket counts: inventory only
// moves through bookings.
type UpdateEventRequestBody struct {
	Title       *string           `json:"title" binding:"omitempty,max=200"`
	Description *string           `json:"description"`
	Category    *EventCategory    `json:"category" binding:"omitempty,eventcategory"`
	Venue       *VenueRequestBody `json:"venue"`
	Date        *string           `json:"date"`
	StartTime   *string           `json:"startTime" binding:"omitempty,hhmm"`
	EndTime     *string           `json:"endTime" binding:"omitempty,hhmm"`
	Featured    *bool             `json:"featured"`
	Tags        []string          `json:"tags"`
	Pricing     *Pricing          `json:"pricing" binding:"omitempty,pricing"`
}

type EventQueryFilters struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Category string `form:"category"`
	City     string `form:"city"`
	Date     string `form:"date"`
	Search   string `form:"search"`
}

type AttendeeRequestBody struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone"`
}

type CreateBookingRequestBody struct {
	EventID       uint                `json:"eventId" binding:"required"`
	Tickets       TierCounts          `json:"tickets"`
	AttendeeInfo  AttendeeRequestBody `json:"attendeeInfo" binding:"required"`
	PaymentMethod PaymentMethod       `json:"paymentMethod" binding:"omitempty,oneof=paypal cash"`
}

type CreatePayPalOrderRequestBody struct {
	BookingID uint `json:"bookingId" binding:"required"`
}

type CapturePayPalPaymentRequestBody struct {
	OrderID   string `json:"orderID" binding:"required"`
	BookingID uint   `json:"bookingId" binding:"required"`
}

type UpdateEventStatusRequestBody struct {
	Status EventStatus `json:"status" binding:"required,eventstatus"`
}

type UpdateBookingStatusRequestBody struct {
	Status BookingStatus `json:"status" binding:"required,bookingstatus"`
}

type AdminListQuery struct {
	Page          int    `form:"page" binding:"omitempty,min=1"`
	Limit         int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Status        string `form:"status"`
	PaymentStatus string `form:"paymentStatus"`
	Search        string `form:"search"`
}

type RegisterUserRequestBody struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Phone    string `json:"phone"`
}

type LoginRequestBody struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}
