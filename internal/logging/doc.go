// Package logging provides structured logging for imxin, wrapping zap with
// context-aware methods.
//
// Every method takes a context.Context; the session id, request id and any
// active OpenTelemetry span are appended to the entry automatically:
//
//	ctx = logging.WithSessionID(ctx, draft.SessionID)
//	logger.Info(ctx, "draft saved", zap.Stringer("step", draft.Step))
//
// Journal content (expressions, triggers, notes) must never be logged. The
// encoder redacts the field names listed in RedactionConfig, and the helpers
// TextLen and RedactedString log only sizes. Tests can assert this with
// TestLogger.AssertNoJournalText.
//
// Output goes to stdout, to an OpenTelemetry LoggerProvider through the
// otelzap bridge, or both.
package logging
