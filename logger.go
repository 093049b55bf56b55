package cslam

import (
	"context"
	"log/slog"
	"os"

	"github.com/anadon/cslam/graph"
)

// Logger wraps slog.Logger with engine-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithRobot adds the owning robot id to the logger.
func (l *Logger) WithRobot(robotID int32) *Logger {
	return &Logger{
		Logger: l.Logger.With("robot_id", robotID),
	}
}

// LogAddLocal logs a local descriptor insertion.
func (l *Logger) LogAddLocal(ctx context.Context, imageID int64, dimension, edges int, err error) {
	if err != nil {
		l.WarnContext(ctx, "local descriptor rejected",
			"image_id", imageID,
			"dimension", dimension,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "local descriptor added",
			"image_id", imageID,
			"dimension", dimension,
			"edges", edges,
		)
	}
}

// LogAddRemote logs a remote descriptor insertion.
func (l *Logger) LogAddRemote(ctx context.Context, peerID int32, imageID int64, edges int, err error) {
	if err != nil {
		l.WarnContext(ctx, "remote descriptor rejected",
			"peer_id", peerID,
			"image_id", imageID,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "remote descriptor added",
			"peer_id", peerID,
			"image_id", imageID,
			"edges", edges,
		)
	}
}

// LogNewPeer logs the first descriptor received from a peer robot.
func (l *Logger) LogNewPeer(ctx context.Context, peerID int32, dimension int) {
	l.InfoContext(ctx, "new peer index",
		"peer_id", peerID,
		"dimension", dimension,
	)
}

// LogSelect logs a candidate selection.
func (l *Logger) LogSelect(ctx context.Context, requested, eligibleRobots, returned int) {
	l.DebugContext(ctx, "candidates selected",
		"requested", requested,
		"robots", eligibleRobots,
		"returned", returned,
	)
}

// LogReject logs a rejection reported by downstream verification.
func (l *Logger) LogReject(ctx context.Context, key graph.Key, rejections int, found bool) {
	if !found {
		l.DebugContext(ctx, "reject for unknown edge",
			"edge", key.String(),
		)
		return
	}
	l.DebugContext(ctx, "edge rejected",
		"edge", key.String(),
		"rejections", rejections,
	)
}
