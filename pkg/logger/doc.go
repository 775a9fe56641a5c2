// Package logger builds slog loggers for the notification engine and holds
// the attribute helpers used across it, so the same keys ("recipient_id",
// "flow_id", "channel", "status", ...) appear in every record.
//
//	log := logger.New(
//	    logger.WithEnvironment(environment.Production, "notify-worker"),
//	    logger.WithContextExtractors(environment.LoggerExtractor()),
//	)
//	log.LogAttrs(ctx, slog.LevelInfo, "delivery sent",
//	    logger.RecipientID(id),
//	    logger.Channel("email"),
//	)
package logger
