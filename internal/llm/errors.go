package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

type ErrorClass string

const (
	ErrorQuota     ErrorClass = "quota"
	ErrorRate      ErrorClass = "rate_limit"
	ErrorContext   ErrorClass = "context_length"
	ErrorTimeout   ErrorClass = "timeout"
	ErrorTransient ErrorClass = "transient"
	ErrorPermanent ErrorClass = "permanent"
)

// ClassifyError 把调用失败归类，写进 failure_reason
func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTimeout
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if code, ok := apiErr.Code.(string); ok {
			switch code {
			case "insufficient_quota":
				return ErrorQuota
			case "context_length_exceeded":
				return ErrorContext
			case "rate_limit_exceeded":
				return ErrorRate
			}
		}
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return ErrorRate
		case apiErr.HTTPStatusCode >= 500:
			return ErrorTransient
		}
	}

	e := strings.ToLower(err.Error())
	switch {
	case strings.Contains(e, "quota"), strings.Contains(e, "credit"):
		return ErrorQuota
	case strings.Contains(e, "rate limit"), strings.Contains(e, "429"):
		return ErrorRate
	case strings.Contains(e, "context length"), strings.Contains(e, "too long"), strings.Contains(e, "maximum context"):
		return ErrorContext
	case strings.Contains(e, "timeout"), strings.Contains(e, "deadline"):
		return ErrorTimeout
	case strings.Contains(e, "temporarily"), strings.Contains(e, "unavailable"), strings.Contains(e, "connection refused"):
		return ErrorTransient
	default:
		return ErrorPermanent
	}
}
