// Package logging provides structured diagnostic logging for hookguard.
//
// Hook processes own stdout for their JSON response, so every log entry goes
// to stderr or to a configured file, never stdout.
//
// Logging wraps Zap with:
//   - Custom Trace level (-2, below Debug) for per-rule evaluation detail
//   - Automatic context fields (hook.event, session.id, request.id)
//   - Secret redaction at the encoder
//
// # Usage
//
//	cfg, err := logging.FromSettings(policy.Logging)
//	logger, err := logging.NewLogger(cfg)
//	defer logger.Sync()
//
//	ctx = logging.WithEvent(ctx, "PreToolUse")
//	ctx = logging.WithRequestID(ctx, uuid.NewString())
//	logger.Warn(ctx, "state save failed", zap.Error(err))
//
// Packages that accept a *zap.Logger get logger.Underlying().
//
// # Redaction
//
// Keys such as "token" and "content" are replaced with [REDACTED]. String
// values are scrubbed of bearer tokens, API key assignments and common
// credential formats.
//
// # Testing
//
//	tl := logging.NewTestLogger()
//	tl.AssertLogged(t, zapcore.WarnLevel, "state save failed")
package logging
