package database

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/richxcame/upi-guard/pkg/config"
	"github.com/richxcame/upi-guard/pkg/resilience"
)

// connectionErrorMessages are matched case-insensitively against errors that
// carry no SQLSTATE, typically dial and socket failures.
var connectionErrorMessages = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"network is unreachable",
	"temporary failure",
	"timeout",
	"too many connections",
	"server closed",
	"unexpected eof",
}

// IsPostgresRetryable reports whether err is a transient PostgreSQL failure
// worth another attempt.
func IsPostgresRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return isRetryableCode(pgErr.Code)
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range connectionErrorMessages {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

func isRetryableCode(code string) bool {
	switch code {
	case "40001", // serialization_failure
		"40P01", // deadlock_detected
		"55P03", // lock_not_available
		"57P01", // admin_shutdown
		"57P02", // crash_shutdown
		"57P03", // cannot_connect_now
		"58000", // system_error
		"XX000": // internal_error
		return true
	case "53100", // disk_full
		"53200": // out_of_memory
		return false
	}

	// class 53 insufficient resources, class 08 connection exception
	return strings.HasPrefix(code, "53") || strings.HasPrefix(code, "08")
}

// IsNotFound reports whether err means the query matched no row.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// isExpectedOutcome lists errors that are a normal answer from a healthy
// database and must not trip the breaker.
func isExpectedOutcome(err error) bool {
	if IsNotFound(err) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// class 22 data exception, class 23 integrity violation
		return strings.HasPrefix(pgErr.Code, "22") || strings.HasPrefix(pgErr.Code, "23")
	}
	return false
}

// NewPolicy returns the retry and breaker policy for a repository.
func NewPolicy(name string, cfg config.ResilienceConfig) *resilience.Policy {
	return resilience.NewPolicy(sanitizeBreakerName("postgres "+name), cfg, IsPostgresRetryable, isExpectedOutcome)
}

func sanitizeBreakerName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}
