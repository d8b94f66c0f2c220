package main

import (
	"GopherPBR/internal/logger"

	"github.com/urfave/cli"
	"go.uber.org/zap/zapcore"
)

func setupLogging(ctx *cli.Context) {
	level := zapcore.WarnLevel
	if ctx.GlobalBool("v") {
		level = zapcore.InfoLevel
	}
	if ctx.GlobalBool("vv") {
		level = zapcore.DebugLevel
	}
	logger.InitWithLevel(level)
}
