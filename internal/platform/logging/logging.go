// Package logging 根据配置构建全局 slog.Logger。
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/nalberthy/url-shorten/internal/platform/config"
)

// Options 从 config.Config 里挑出日志相关的字段
type Options struct {
	Level       slog.Level
	Format      string // json | text
	File        string // 非空时同时写入滚动文件
	MaxSizeMB   int
	MaxBackups  int
	MaxAgeDays  int
	ServiceName string
}

func FromConfig(cfg config.Config) Options {
	return Options{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		File:        cfg.LogFile,
		MaxSizeMB:   cfg.LogMaxSizeMB,
		MaxBackups:  cfg.LogMaxBackups,
		MaxAgeDays:  cfg.LogMaxAgeDays,
		ServiceName: cfg.ServiceName,
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New 返回 logger 和退出时要关闭的文件 sink，没有文件时 Close 什么也不做
func New(stdout io.Writer, opts Options) (*slog.Logger, io.Closer) {
	var (
		w      = stdout
		closer io.Closer = nopCloser{}
	)
	if opts.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
		w = io.MultiWriter(stdout, rotating)
		closer = rotating
	}

	ho := &slog.HandlerOptions{Level: opts.Level}
	var h slog.Handler
	if strings.EqualFold(opts.Format, "text") {
		h = slog.NewTextHandler(w, ho)
	} else {
		h = slog.NewJSONHandler(w, ho)
	}

	logger := slog.New(h)
	if opts.ServiceName != "" {
		logger = logger.With("service", opts.ServiceName)
	}
	return logger, closer
}

// Setup 构建 logger 并设为默认
func Setup(cfg config.Config) io.Closer {
	logger, closer := New(os.Stdout, FromConfig(cfg))
	slog.SetDefault(logger)
	return closer
}
