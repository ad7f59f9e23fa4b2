package services

import (
	"context"
	"runtime"
	"time"

	"github.com/yyup/kindergarten-service/internal/utils"
)

const ServiceName = "kindergarten-service"

// Version is overridden at build time with -ldflags "-X ...services.Version=...".
var Version = "dev"

type systemService struct {
	environment string
	startedAt   time.Time
	logger      utils.Logger
}

func NewSystemService(environment string, startedAt time.Time, logger utils.Logger) SystemService {
	return &systemService{
		environment: environment,
		startedAt:   startedAt,
		logger:      logger.With("service", "system"),
	}
}

func (s *systemService) Info(ctx context.Context) *SystemInfo {
	return &SystemInfo{
		Service:       ServiceName,
		Version:       Version,
		Environment:   s.environment,
		StartedAt:     s.startedAt.UTC().Format(time.RFC3339),
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		GoVersion:     runtime.Version(),
	}
}

func (s *systemService) ClearCache(ctx context.Context) error {
	return NewNotImplementedError("清理缓存功能暂未实现")
}

func (s *systemService) TestEmail(ctx context.Context) error {
	return NewNotImplementedError("邮件服务测试功能暂未实现")
}
