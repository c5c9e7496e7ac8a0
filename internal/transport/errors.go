package transport

import (
	"errors"
	"net/http"

	"juya-shop/internal/domain"
	"juya-shop/internal/middleware"
	"juya-shop/internal/repository"
	"juya-shop/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// respondServiceError maps the expected, caller-recoverable errors to
// client responses. Anything unrecognized is treated as a persistence or
// internal failure and reported as a 500 with a generic message.
func respondServiceError(w http.ResponseWriter, logger *zap.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, repository.ErrCartItemNotFound),
		errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrCategoryNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, repository.ErrInsufficientStock):
		middleware.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, repository.ErrCategoryAlreadyExists):
		middleware.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidOrderStatus),
		errors.Is(err, domain.ErrLocalCartVersion):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Error(fallback, zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, fallback)
	}
}

// requestUser extracts the authenticated user's ID and admin flag from the
// request context populated by the auth middleware.
func requestUser(r *http.Request) (uuid.UUID, bool, error) {
	userIDStr, ok := middleware.GetUserID(r.Context())
	if !ok {
		return uuid.Nil, false, errors.New("user not found in context")
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, false, err
	}

	role, _ := middleware.GetUserRole(r.Context())
	return userID, role == "admin", nil
}

// respondDecodeError answers a failed DecodeAndValidate call: structured
// field errors when validation failed, a generic 400 for malformed JSON.
func respondDecodeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	logger.Debug("Request validation failed", zap.Error(err))

	if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
		middleware.RespondWithValidationErrors(w, validationErrors)
		return
	}

	middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
}
