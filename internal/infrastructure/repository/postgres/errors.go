package postgres

import (
	"database/sql/driver"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kirillkom/knowledge-hub-tools/internal/core/domain"
	"github.com/kirillkom/knowledge-hub-tools/internal/infrastructure/resilience"
)

const (
	codeUniqueViolation       = "23505"
	codeInsufficientPrivilege = "42501"
	codeInvalidTextRepr       = "22P02"
)

func classifyPGError(err error) resilience.ErrorClassification {
	if class, ok := resilience.ClassifyCommon(err); ok {
		return class
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) >= 2 {
		// Class 08 is connection exceptions, 40 transaction rollbacks,
		// 53 insufficient resources.
		switch pgErr.Code[:2] {
		case "08", "40", "53":
			return resilience.Transient
		}
		return resilience.Rejected
	}
	if errors.Is(err, driver.ErrBadConn) || pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return resilience.Transient
	}
	return resilience.Permanent
}

func mapPGError(operation string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return domain.WrapError(domain.ErrSlugConflict, operation, err)
		case codeInsufficientPrivilege:
			return domain.WrapError(domain.ErrPermissionDenied, operation, err)
		case codeInvalidTextRepr:
			return domain.WrapError(domain.ErrInvalidInput, operation, err)
		}
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if class := classifyPGError(err); class.Retryable {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
