// Package types defines the JSON envelopes shared by every API response.
package types

// SuccessEnvelope wraps successful response payloads.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the client-facing error body.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps an APIError.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
