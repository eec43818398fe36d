package types

// ErrorBody is the JSON shape of every non-2xx API response.
type ErrorBody struct {
	Error      string `json:"error"`
	Code       string `json:"code,omitempty"`
	Details    any    `json:"details,omitempty"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

// SuccessBody is the common {success: true} acknowledgement.
type SuccessBody struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
