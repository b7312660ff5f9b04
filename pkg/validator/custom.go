package validator

import "github.com/go-playground/validator/v10"

const (
	LatitudeRangeMessage  = "Latitude must be between -90.0 and 90.0"
	LongitudeRangeMessage = "Longitude must be between -180.0 and 180.0"
)

func RegisterCustomValidations(validate *validator.Validate) {
	validate.RegisterValidation("lat", validateLat)
	validate.RegisterValidation("lng", validateLng)
}

func validateLat(fl validator.FieldLevel) bool {
	lat := fl.Field().Float()
	return lat >= -90.0 && lat <= 90.0
}

func validateLng(fl validator.FieldLevel) bool {
	lng := fl.Field().Float()
	return lng >= -180.0 && lng <= 180.0
}

var messages = map[string]string{
	"lat": LatitudeRangeMessage,
	"lng": LongitudeRangeMessage,
}
