package hetzner

import "fmt"

// maxDetailLen caps how much of an error response body is kept
const maxDetailLen = 500

// APIError is returned when a Hetzner API responds with status >= 400
type APIError struct {
	API        string
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hetzner %s api error %d: %s", e.API, e.StatusCode, e.Detail)
}

func newAPIError(api string, statusCode int, body []byte) *APIError {
	detail := string(body)
	if len(detail) > maxDetailLen {
		detail = detail[:maxDetailLen]
	}
	return &APIError{API: api, StatusCode: statusCode, Detail: detail}
}
