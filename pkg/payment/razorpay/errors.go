package razorpay

import "errors"

var (
	// ErrInvalidConfig is returned when key id, secret or base URL is missing
	ErrInvalidConfig = errors.New("razorpay: key id, key secret and base url are required")

	// ErrInvalidRequest is returned when the gateway rejects the request parameters
	ErrInvalidRequest = errors.New("razorpay: invalid request parameters")

	// ErrUnauthorized is returned when the API key pair is rejected
	ErrUnauthorized = errors.New("razorpay: unauthorized")

	// ErrGatewayFailure covers any other non-2xx answer
	ErrGatewayFailure = errors.New("razorpay: gateway failure")

	// ErrNetworkError is returned when the gateway could not be reached
	ErrNetworkError = errors.New("razorpay: network error")
)
