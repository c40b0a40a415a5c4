package api

type ErrorResponse struct {
	Message ServiceError `json:"error_message"`
}

type ServiceError string

const (
	RatesNotFound       ServiceError = "Rates not found for this date"
	InvalidDateFormat   ServiceError = "Invalid date format. Use YYYY-MM-DD"
	ServerInternalError ServiceError = "Server internal error"
)
