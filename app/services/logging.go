package services

import (
	"io"
	"log"
	"os"

	"github.com/mzare/copyforge/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// SetupLogging points the standard logger at the configured output. File
// output rotates via lumberjack so long-running deployments do not fill the
// disk. Returns the writer so main can close over it if needed.
func SetupLogging(cfg *config.LoggingConfig) io.Writer {
	var writer io.Writer

	switch cfg.Output {
	case "file":
		writer = newRotatingWriter(cfg)
	case "both":
		writer = io.MultiWriter(os.Stdout, newRotatingWriter(cfg))
	default:
		writer = os.Stdout
	}

	log.SetOutput(writer)
	log.SetFlags(log.LstdFlags | log.LUTC | log.Lmicroseconds)

	return writer
}

func newRotatingWriter(cfg *config.LoggingConfig) io.Writer {
	return &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
}
