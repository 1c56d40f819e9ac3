package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/upi-guard/pkg/common"
)

const (
	// DefaultLimit is used when the client sends no usable limit
	DefaultLimit = 20
	// MaxLimit caps any client supplied limit
	MaxLimit = 100
	// DefaultOffset is used when the client sends no usable offset
	DefaultOffset = 0
)

// Params holds the limit/offset pair parsed from a request
type Params struct {
	Limit  int
	Offset int
}

// ParseParams reads ?limit and ?offset with the package defaults
func ParseParams(c *gin.Context) Params {
	return ParseParamsWithLimits(c, DefaultLimit, MaxLimit)
}

// ParseParamsWithLimits reads ?limit and ?offset using an endpoint specific
// default and cap. Non-positive or non-numeric limits fall back to
// defaultLimit; negative or non-numeric offsets fall back to DefaultOffset.
func ParseParamsWithLimits(c *gin.Context, defaultLimit, maxLimit int) Params {
	p := Params{Limit: defaultLimit, Offset: DefaultOffset}

	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		p.Limit = v
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}

	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v >= 0 {
		p.Offset = v
	}

	return p
}

// BuildMeta builds response metadata for a page
func BuildMeta(limit, offset int, total int64) *common.Meta {
	meta := &common.Meta{
		Limit:  limit,
		Offset: offset,
		Total:  total,
	}
	if limit > 0 && total > 0 {
		meta.TotalPages = (total + int64(limit) - 1) / int64(limit)
	}
	return meta
}

// HasMore reports whether rows exist past the current page
func HasMore(offset, limit int, total int64) bool {
	return int64(offset+limit) < total
}

// GetCurrentPage returns the 1-based page number for offset
func GetCurrentPage(offset, limit int) int {
	if limit <= 0 {
		return 1
	}
	return offset/limit + 1
}
