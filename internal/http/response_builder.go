package http

import (
	"net/http"
)

// ResponseBuilder assembles small non-template responses: plain-text
// messages, redirects and bare status codes.
type ResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       []byte
}

func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// Text sets a plain-text body.
func (b *ResponseBuilder) Text(msg string) *ResponseBuilder {
	b.headers["Content-Type"] = "text/plain; charset=utf-8"
	b.body = []byte(msg)
	return b
}

// Redirect turns the response into a 302 to location.
func (b *ResponseBuilder) Redirect(location string) *ResponseBuilder {
	b.statusCode = http.StatusFound
	b.headers["Location"] = location
	return b
}

func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// TextResponse is a plain-text body with the given status.
func TextResponse(status int, msg string) *ResponseBuilder {
	return NewResponse().Status(status).Text(msg)
}

func RedirectTo(location string) *ResponseBuilder {
	return NewResponse().Redirect(location)
}

// ForbiddenError is the response for an expense the user does not own.
func ForbiddenError() *ResponseBuilder {
	return TextResponse(http.StatusForbidden, "Not allowed")
}

func NotFoundError() *ResponseBuilder {
	return TextResponse(http.StatusNotFound, "Not found")
}

func BadRequestError(msg string) *ResponseBuilder {
	return TextResponse(http.StatusBadRequest, msg)
}

func InternalServerError() *ResponseBuilder {
	return TextResponse(http.StatusInternalServerError, "Internal server error")
}
