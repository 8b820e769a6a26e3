// Package upload describes the backend's answer to an upload.
package upload

// Response is the validated body of POST /upload.
type Response struct {
	message string
}

// NewResponse creates an upload response.
func NewResponse(message string) Response {
	return Response{message: message}
}

// Message returns the text to surface to the user.
func (r Response) Message() string { return r.message }
