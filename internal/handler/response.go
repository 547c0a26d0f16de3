package handler

// RESPONSE HELPERS:
// Every response from the API uses one of two envelopes.
//
//	success: {"statusCode":200,"data":{...},"message":"...","success":true}
//	error:   {"statusCode":404,"error":"not_found","message":"...","field":"...","success":false}
//
// The error kind is machine-readable and stable; the message is for humans.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/jenilmangukiya/blog-backend/internal/apperror"
	"github.com/jenilmangukiya/blog-backend/internal/auth"
)

// Response is the success envelope.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// ErrorResponse is the error envelope.
type ErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
	Field      string `json:"field,omitempty"`
	Success    bool   `json:"success"`
}

// writeJSON sends a JSON body with the given status code. Headers must be
// set before WriteHeader; anything set afterwards is silently dropped.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

func respond(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, Response{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    true,
	})
}

// errorKinds maps each apperror kind to its status code and wire name.
// Order matters only for errors that wrap more than one kind.
var errorKinds = []struct {
	kind   error
	status int
	name   string
}{
	{apperror.ErrValidation, http.StatusBadRequest, "validation_error"},
	{apperror.ErrNotFound, http.StatusNotFound, "not_found"},
	{apperror.ErrConflict, http.StatusConflict, "conflict"},
	{apperror.ErrForbidden, http.StatusForbidden, "forbidden"},
	{apperror.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{apperror.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
	{apperror.ErrMissingToken, http.StatusUnauthorized, "missing_token"},
	{apperror.ErrTokenInvalid, http.StatusUnauthorized, "token_invalid"},
	{apperror.ErrTokenReused, http.StatusUnauthorized, "token_reused"},
}

// writeError maps a domain error to its status code and sends the error
// envelope. Anything that is not a known kind becomes a 500 whose body says
// nothing about the cause; the cause is logged instead.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		for _, k := range errorKinds {
			if errors.Is(err, k.kind) {
				writeJSON(w, k.status, ErrorResponse{
					StatusCode: k.status,
					Error:      k.name,
					Message:    appErr.Message,
					Field:      appErr.Field,
				})
				return
			}
		}
	}

	logger.Error("request failed",
		slog.String("requestID", chimiddleware.GetReqID(r.Context())),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)

	message := "an internal error occurred"
	if appErr != nil && errors.Is(err, apperror.ErrInternal) {
		message = appErr.Message
	}
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		StatusCode: http.StatusInternalServerError,
		Error:      "internal_error",
		Message:    message,
	})
}

// ErrorWriter adapts writeError for middleware outside this package, so
// authentication failures use the same envelope as handler errors.
func ErrorWriter(logger *slog.Logger) auth.ErrorWriter {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		writeError(w, r, logger, err)
	}
}
