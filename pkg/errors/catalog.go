package errors

import "net/http"

// Metadata is the client-facing contract of a Code.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
	// EchoMessage lets the error's own message replace PublicMessage.
	EchoMessage bool
}

// CodeOutOfRange echoes the measured distance back to the caller.
var catalog = map[Code]Metadata{
	CodeValidation:    {HTTPStatus: http.StatusBadRequest, PublicMessage: "validation failed", DetailsAllowed: true, EchoMessage: true},
	CodeUnauthorized:  {HTTPStatus: http.StatusUnauthorized, PublicMessage: "authentication required", EchoMessage: true},
	CodeForbidden:     {HTTPStatus: http.StatusForbidden, PublicMessage: "access denied", EchoMessage: true},
	CodeNotFound:      {HTTPStatus: http.StatusNotFound, PublicMessage: "resource not found", EchoMessage: true},
	CodeConflict:      {HTTPStatus: http.StatusConflict, PublicMessage: "conflict detected", EchoMessage: true},
	CodeStateConflict: {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "state transition disallowed", DetailsAllowed: true, EchoMessage: true},
	CodeIdempotency:   {HTTPStatus: http.StatusConflict, PublicMessage: "idempotency key reused", DetailsAllowed: true, EchoMessage: true},
	CodeRateLimit:     {HTTPStatus: http.StatusTooManyRequests, PublicMessage: "rate limit exceeded", EchoMessage: true},
	CodeOutOfRange:    {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "too far from store", DetailsAllowed: true, EchoMessage: true},
	CodeInternal:      {HTTPStatus: http.StatusInternalServerError, PublicMessage: "internal server error", Retryable: true},
	CodeDependency:    {HTTPStatus: http.StatusServiceUnavailable, PublicMessage: "dependency unavailable", Retryable: true, DetailsAllowed: true},
	CodePhotoUpload:   {HTTPStatus: http.StatusBadGateway, PublicMessage: "photo upload failed", Retryable: true},
}

// MetadataFor falls back to CodeInternal for codes it does not know.
func MetadataFor(code Code) Metadata {
	if meta, ok := catalog[code]; ok {
		return meta
	}
	return catalog[CodeInternal]
}

// Public is the part of e a client may see.
type Public struct {
	Status  int
	Code    Code
	Message string
	Details any
}

func (e *Error) Public() Public {
	code := e.Code()
	meta := MetadataFor(code)
	out := Public{Status: meta.HTTPStatus, Code: code, Message: meta.PublicMessage}
	if meta.EchoMessage && e.Message() != "" {
		out.Message = e.Message()
	}
	if meta.DetailsAllowed {
		out.Details = e.Details()
	}
	return out
}
