package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/sells-group/cvrgpt/internal/apperr"
)

// errorBody is the canonical error envelope.
type errorBody struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	RetryAfter int    `json:"retry_after,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}

// writeError translates an error into the envelope exactly once, at the
// boundary. Unclassified errors become an opaque 500 carrying the request id
// for correlation; their cause is logged, never sent.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := chimw.GetReqID(r.Context())

	ae := apperr.As(err)
	if ae == nil {
		zap.L().Error("unhandled error",
			zap.String("request_id", reqID),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Code:      "INTERNAL",
			Message:   "internal error",
			RequestID: reqID,
		})
		return
	}

	status := ae.HTTPStatus()
	body := errorBody{Code: string(ae.Code), Message: ae.Message, RequestID: reqID}
	if status < 500 {
		body.Detail = ae.Detail
	}
	if ae.Code == apperr.CodeRateLimit && ae.RetryAfter > 0 {
		body.RetryAfter = ae.RetryAfter
		w.Header().Set("Retry-After", strconv.Itoa(ae.RetryAfter))
	}
	if status >= 500 {
		zap.L().Warn("request failed",
			zap.String("request_id", reqID),
			zap.String("path", r.URL.Path),
			zap.String("code", string(ae.Code)),
			zap.Error(err))
	}
	writeJSON(w, status, body)
}
