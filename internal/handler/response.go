// Package handler holds the response envelope shared by every HTTP handler.
package handler

// Response is the uniform JSON body: status is "success" or "error", message
// carries the human-readable error text, data the payload. Handlers never
// hand-build this shape.
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}
