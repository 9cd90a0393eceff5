package postgrest

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/kirillkom/knowledge-hub-tools/internal/core/domain"
	"github.com/kirillkom/knowledge-hub-tools/internal/infrastructure/resilience"
)

// Postgres error codes surfaced through the REST error document.
const (
	codeUniqueViolation       = "23505"
	codeInsufficientPrivilege = "42501"
	codeInvalidTextRepr       = "22P02"
)

type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Code       string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "postgrest status error"
	}
	msg := fmt.Sprintf("postgrest %s status: %s", e.Operation, e.Status)
	if e.Code != "" {
		msg += " (" + e.Code + ")"
	}
	if strings.TrimSpace(e.Body) != "" {
		msg += ": " + strings.TrimSpace(e.Body)
	}
	return msg
}

func classifyRESTError(err error) resilience.ErrorClassification {
	if class, ok := resilience.ClassifyCommon(err); ok {
		return class
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if isRetryableHTTPStatus(statusErr.StatusCode) {
			return resilience.Transient
		}
		return resilience.Rejected
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.Transient
	}
	return resilience.Permanent
}

// mapRESTError turns transport failures into domain error kinds.
func mapRESTError(operation string, err error) error {
	if err == nil {
		return nil
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.Code == codeUniqueViolation,
			statusErr.StatusCode == http.StatusConflict && statusErr.Code == "":
			return domain.WrapError(domain.ErrSlugConflict, operation, err)
		case statusErr.StatusCode == http.StatusUnauthorized,
			statusErr.StatusCode == http.StatusForbidden,
			statusErr.Code == codeInsufficientPrivilege:
			return domain.WrapError(domain.ErrPermissionDenied, operation, err)
		case statusErr.Code == codeInvalidTextRepr:
			return domain.WrapError(domain.ErrInvalidInput, operation, err)
		}
	}
	return wrapTemporaryIfNeeded(operation, err)
}

func wrapTemporaryIfNeeded(operation string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		return err
	}

	class := classifyRESTError(err)
	if class.Retryable || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return statusCode >= 500
	}
}
