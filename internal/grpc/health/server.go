// Package health gRPC-сервер со стандартным health-сервисом и reflection.
package health

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// ServiceName имя сервиса, статус которого публикуется.
const ServiceName = "shorttty.Shortener"

// DefaultInterval как часто проверяется хранилище.
const DefaultInterval = 10 * time.Second

// Pinger проверка доступности хранилища.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	grpc     *grpc.Server
	health   *health.Server
	pinger   Pinger
	logger   *zap.Logger
	interval time.Duration
}

func NewServer(pinger Pinger, logger *zap.Logger, interval time.Duration) *Server {
	if interval <= 0 {
		interval = DefaultInterval
	}
	s := &Server{
		health:   health.NewServer(),
		pinger:   pinger,
		logger:   logger,
		interval: interval,
	}
	s.grpc = grpc.NewServer(grpc.UnaryInterceptor(s.logInterceptor))
	healthpb.RegisterHealthServer(s.grpc, s.health)
	reflection.Register(s.grpc)
	return s
}

// Serve блокируется до остановки сервера.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("gRPC server started", zap.String("address", lis.Addr().String()))
	return s.grpc.Serve(lis)
}

// Check один раз проверяет хранилище и обновляет статус.
func (s *Server) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	st := healthpb.HealthCheckResponse_SERVING
	if err := s.pinger.Ping(ctx); err != nil {
		s.logger.Warn("Storage health check failed", zap.Error(err))
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
	return st
}

// Watch обновляет статус каждые interval до отмены ctx.
func (s *Server) Watch(ctx context.Context) {
	s.Check(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Check(ctx)
		}
	}
}

// Stop переводит статус в NOT_SERVING и дожидается текущих вызовов.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}

func (s *Server) logInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Debug("gRPC request",
		zap.String("method", info.FullMethod),
		zap.String("code", status.Code(err).String()),
		zap.Duration("duration", time.Since(start)),
	)
	return resp, err
}
