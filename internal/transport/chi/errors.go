package chi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/kailas-cloud/staysearch/internal/domain"
	logpkg "github.com/kailas-cloud/staysearch/internal/logger"
)

// clientVisible are the sentinels whose text may reach clients. Validation
// errors carry their detail, the rest only the sentinel message.
var clientVisible = []error{
	domain.ErrNotFound,
	domain.ErrSearchUnavailable,
	domain.ErrLockNotAcquired,
	domain.ErrRebuildInProgress,
	domain.ErrUnknownEvent,
}

// safeDomainMessage returns a client message without exposing internals.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidQuery) || errors.Is(err, domain.ErrInvalidEvent) {
		return err.Error()
	}
	for _, s := range clientVisible {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
}

func writeValidationError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Namespace()] = msgForTag(fe)
	}
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Code:    codeValidationFailed,
		Message: "request validation failed",
		Fields:  fields,
	})
}

func msgForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_with":
		return "is required"
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed on '%s' validation", fe.Tag())
	}
}
