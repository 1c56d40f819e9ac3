package database

import (
	"errors"

	"github.com/richxcame/upi-guard/pkg/common"
	"github.com/richxcame/upi-guard/pkg/resilience"
)

// StoreError maps a failed store call to an AppError: an open breaker is a
// 503, anything else a 500 carrying msg.
func StoreError(msg string, err error) *common.AppError {
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return common.NewServiceUnavailableError("database temporarily unavailable", err)
	}
	return common.NewInternalServerError(msg, err)
}
