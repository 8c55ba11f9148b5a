package provider

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/streamchat-ai/streamchat/pkg/types"
)

// Classify maps a raw provider error onto the session error taxonomy.
// Quota exhaustion and rate limiting both surface as HTTP 429 upstream, so
// the body text is what distinguishes "back off and retry" from "needs
// external remediation".
func Classify(err error) *types.SessionError {
	if err == nil {
		return nil
	}

	var se *types.SessionError
	if errors.As(err, &se) {
		return se
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return types.NewSessionError(types.ErrKindAborted, err)
	}

	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "insufficient_quota"),
		strings.Contains(msg, "quota exceeded"),
		strings.Contains(msg, "billing"):
		return types.NewSessionError(types.ErrKindQuotaExceeded, err)

	case strings.Contains(msg, "rate_limit"),
		strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "too many requests"),
		strings.Contains(msg, "429"):
		return types.NewSessionError(types.ErrKindRateLimited, err)

	case strings.Contains(msg, "connection"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "unavailable"),
		strings.Contains(msg, "eof"),
		strings.Contains(msg, "502"),
		strings.Contains(msg, "503"),
		isNetError(err):
		return types.NewSessionError(types.ErrKindProviderUnavailable, err)
	}

	return types.NewSessionError(types.ErrKindInternal, err)
}

func isNetError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr)
}
