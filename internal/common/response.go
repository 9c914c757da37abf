package common

import (
	"encoding/json"
	"net/http"
)

type ResponseType string

const (
	ResponseTypeObject ResponseType = "object"
	ResponseTypeArray  ResponseType = "array"
	ResponseTypeError  ResponseType = "error"
)

// Pagination is the cursor metadata returned with proposal pages
type Pagination struct {
	Limit       int     `json:"limit"`
	StartBefore *uint64 `json:"start_before,omitempty"`
	Next        *uint64 `json:"next,omitempty"`
	HasMore     bool    `json:"has_more"`
}

// Response is the default response object
// swagger:response defaultResponse
type Response struct {
	// The response type
	// in: body
	ResponseType ResponseType `json:"response_type"`
	Object       any          `json:"object,omitempty"`
	Array        any          `json:"array,omitempty"`
	Meta         any          `json:"meta,omitempty"`
	Error        string       `json:"error,omitempty"`
}

func Body(w http.ResponseWriter, body any, meta any) error {
	return write(w, http.StatusOK, &Response{
		ResponseType: ResponseTypeObject,
		Object:       body,
		Meta:         meta,
	})
}

// BodyStatus writes an object response with a custom status code
func BodyStatus(w http.ResponseWriter, status int, body any, meta any) error {
	return write(w, status, &Response{
		ResponseType: ResponseTypeObject,
		Object:       body,
		Meta:         meta,
	})
}

func BodyMultiple(w http.ResponseWriter, body any, meta any) error {
	return write(w, http.StatusOK, &Response{
		ResponseType: ResponseTypeArray,
		Array:        body,
		Meta:         meta,
	})
}

// Error writes an error response, the message is shown to the user verbatim
func Error(w http.ResponseWriter, status int, message string, body any) error {
	return write(w, status, &Response{
		ResponseType: ResponseTypeError,
		Object:       body,
		Error:        message,
	})
}

func write(w http.ResponseWriter, status int, resp *Response) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}

	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)

	return nil
}
