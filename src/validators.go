package main

import (
	"eventhub/src/types"
	"slices"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func eventCategoryValidator(fl validator.FieldLevel) bool {
	return slices.Contains(types.EventCategories, types.EventCategory(fl.Field().String()))
}

func eventStatusValidator(fl validator.FieldLevel) bool {
	switch types.EventStatus(fl.Field().String()) {
	case types.EVENT_ACTIVE, types.EVENT_CANCELLED, types.EVENT_COMPLETED, types.EVENT_DRAFT:
		return true
	}
	return false
}

func bookingStatusValidator(fl validator.FieldLevel) bool {
	switch types.BookingStatus(fl.Field().String()) {
	case types.BOOKING_CONFIRMED, types.BOOKING_CANCELLED, types.BOOKING_ATTENDED:
		return true
	}
	return false
}

// hhmmValidator accepts a 24h time of day such as 09:30.
func hhmmValidator(fl validator.FieldLevel) bool {
	_, err := time.Parse("15:04", fl.Field().String())
	return err == nil
}

func tierCountsValidator(fl validator.FieldLevel) bool {
	counts, ok := fl.Field().Interface().(types.TierCounts)
	return ok && counts.InRange()
}

func pricingValidator(fl validator.FieldLevel) bool {
	pricing, ok := fl.Field().Interface().(types.Pricing)
	if !ok {
		return false
	}
	for _, t := range types.TIERS {
		if pricing.Get(t).IsNegative() {
			return false
		}
	}
	return true
}

func tierCountsStructValidator(sl validator.StructLevel) {
	counts := sl.Current().Interface().(types.TierCounts)
	for _, t := range types.TIERS {
		if n := counts.Get(t); n < 0 || n > types.MAX_TIER_QUANTITY {
			sl.ReportError(counts.Get(t), string(t), string(t), "tiercounts", "")
		}
	}
}

func pricingStructValidator(sl validator.StructLevel) {
	pricing := sl.Current().Interface().(types.Pricing)
	for _, t := range types.TIERS {
		if pricing.Get(t).IsNegative() {
			sl.ReportError(pricing.Get(t), string(t), string(t), "pricing", "")
		}
	}
}

func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("eventcategory", eventCategoryValidator)
		v.RegisterValidation("eventstatus", eventStatusValidator)
		v.RegisterValidation("bookingstatus", bookingStatusValidator)
		v.RegisterValidation("hhmm", hhmmValidator)
		v.RegisterValidation("tiercounts", tierCountsValidator)
		v.RegisterValidation("pricing", pricingValidator)
		v.RegisterStructValidation(tierCountsStructValidator, types.TierCounts{})
		v.RegisterStructValidation(pricingStructValidator, types.Pricing{})
	}
}
