package lookup

import (
	"errors"
	"fmt"

	"snpfreq-service/client/dbsnp"
	"snpfreq-service/service/models"
	"snpfreq-service/service/rate_limiter"
)

// ErrorKind 查询失败分类
type ErrorKind string

const (
	KindValidation  ErrorKind = "validation"
	KindRejected    ErrorKind = "rejected"
	KindNotFound    ErrorKind = "not_found"
	KindUnavailable ErrorKind = "unavailable"
	KindMalformed   ErrorKind = "malformed"
	KindCanceled    ErrorKind = "canceled"
)

// ErrQuotaExceeded 超过每小时配额
var ErrQuotaExceeded = errors.New("hourly request quota exceeded")

// LookupError 分类后的查询失败
type LookupError struct {
	Kind ErrorKind
	RSID string
	Err  error

	// Quota 仅在 KindRejected 时非空
	Quota *rate_limiter.RateLimitResult
}

func (e *LookupError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("lookup %s: %s", e.RSID, e.Kind)
	}
	return fmt.Sprintf("lookup %s: %s: %v", e.RSID, e.Kind, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// KindOf 返回错误分类，非 LookupError 归为 unavailable
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var le *LookupError
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindUnavailable
}

// IsKind 判断错误是否属于指定分类
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

func newError(kind ErrorKind, rsid string, err error) *LookupError {
	return &LookupError{Kind: kind, RSID: rsid, Err: err}
}

// classifyUpstream 上游失败映射为查询失败分类
func classifyUpstream(id models.VariantID, err error) *LookupError {
	switch {
	case errors.Is(err, dbsnp.ErrNotFound):
		return newError(KindNotFound, id.String(), err)
	case errors.Is(err, dbsnp.ErrMalformed):
		return newError(KindMalformed, id.String(), err)
	default:
		return newError(KindUnavailable, id.String(), err)
	}
}
