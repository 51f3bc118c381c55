package middleware

import (
	"time"

	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/metrics"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// 1リクエスト1行のアクセスログとHTTPメトリクス
func RequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				//ステータスを確定させる
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			elapsed := time.Since(start)
			//パスはルート定義を使う（ラベル数を抑える）
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			metrics.ObserveHTTP(req.Method, path, res.Status, elapsed)

			fields := []zap.Field{
				zap.String("request_id", res.Header().Get(echo.HeaderXRequestID)),
				zap.String("method", req.Method),
				zap.String("path", path),
				zap.Int("status", res.Status),
				zap.Duration("latency", elapsed),
			}
			if uid, ok := c.Get(CtxUserIDKey).(int64); ok {
				fields = append(fields, zap.Int64("user_id", uid))
			}
			if sid, ok := c.Get(CtxShopIDKey).(int64); ok {
				fields = append(fields, zap.Int64("shop_id", sid))
			}

			switch {
			case res.Status >= 500:
				logger.Error("request", fields...)
			case res.Status >= 400:
				logger.Warn("request", fields...)
			default:
				logger.Info("request", fields...)
			}
			return nil
		}
	}
}
