package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/roach88/slotswap/internal/slot"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code      slot.Code `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	_ = encoder.Encode(payload)
}

// statusFor maps a slot.Code to an HTTP status.
func statusFor(code slot.Code) int {
	switch code {
	case slot.CodeNotFound:
		return http.StatusNotFound
	case slot.CodeForbidden:
		return http.StatusForbidden
	case slot.CodeInvalidOperation, slot.CodeInvalidRange:
		return http.StatusBadRequest
	case slot.CodeConflict:
		return http.StatusConflict
	case slot.CodeUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := slot.CodeOf(err)
	detail := errorDetail{Code: code, Retryable: slot.IsRetryable(err)}

	var e *slot.Error
	if code != slot.CodeInternal && errors.As(err, &e) {
		detail.Message = e.Message
	} else {
		detail.Code = slot.CodeInternal
		detail.Message = "internal error"
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, statusFor(detail.Code), errorBody{Error: detail})
}

// decodeBody reads a JSON request body into dst.
func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return slot.Errorf(slot.CodeInvalidOperation, "request body is required")
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return slot.Wrap(slot.CodeInvalidOperation, "invalid request body", err)
	}
	return nil
}
