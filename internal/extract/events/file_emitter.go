package events

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/readlens/engine/internal/common/configtypes"
)

const (
	DefaultMaxSize    = 100 // MB
	DefaultMaxAge     = 30  // days
	DefaultMaxBackups = 10  // files
)

// FileEmitter writes events as JSON lines to a log file with rotation support.
type FileEmitter struct {
	writer *lumberjack.Logger
	logger *zap.Logger
}

// NewFileEmitter creates a new file-based event emitter.
// Returns error if directory creation fails.
func NewFileEmitter(config configtypes.EventFileConfig, logger *zap.Logger) (*FileEmitter, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(config.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	// Apply rotation defaults
	maxSize := config.Rotation.MaxSize
	if maxSize == 0 {
		maxSize = DefaultMaxSize
	}

	maxAge := config.Rotation.MaxAge
	if maxAge == 0 {
		maxAge = DefaultMaxAge
	}

	maxBackups := config.Rotation.MaxBackups
	if maxBackups == 0 {
		maxBackups = DefaultMaxBackups
	}

	// Initialize lumberjack logger
	writer := &lumberjack.Logger{
		Filename:   config.Path,
		MaxSize:    maxSize,
		MaxAge:     maxAge,
		MaxBackups: maxBackups,
		Compress:   config.Rotation.Compress,
	}

	return &FileEmitter{
		writer: writer,
		logger: logger,
	}, nil
}

// Emit serializes the event and writes it to the log file.
// Fire-and-forget: errors are logged but not returned.
func (f *FileEmitter) Emit(event *AccessEvent) {
	line, err := json.Marshal(event)
	if err != nil {
		f.logger.Warn("failed to serialize event",
			zap.Error(err),
			zap.String("request_id", event.RequestID),
		)
		return
	}

	_, err = f.writer.Write(append(line, '\n'))
	if err != nil {
		f.logger.Warn("failed to write event to log file",
			zap.Error(err),
			zap.String("request_id", event.RequestID),
		)
	}
}

// Close closes the underlying file handle.
func (f *FileEmitter) Close() error {
	return f.writer.Close()
}
