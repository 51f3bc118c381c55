package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/config"
)

// 開発ではconsole+debug、それ以外は設定値（既定json+info）
func New(cfg config.Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = zapcore.InfoLevel
	}

	zc := zap.NewProductionConfig()
	zc.Encoding = cfg.LogEncoding
	if cfg.IsDev() {
		zc = zap.NewDevelopmentConfig()
		zc.Encoding = "console"
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.EncoderConfig.TimeKey = "ts"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zc.Build()
}
