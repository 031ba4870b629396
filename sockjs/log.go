package sockjs

import "go.uber.org/zap"

// NewLogger is a small convenience wrapper for hosts that just want a
// reasonable default instead of building their own zap.Logger: a
// production JSON logger in production-ish environments, falling back
// to a no-op logger if construction fails for any reason (never worth
// failing startup over).
func NewLogger() *zap.Logger {
	l, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return l
}
