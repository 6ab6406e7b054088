package tracing

import (
	"fmt"
	"io"
	"statusflow/common"

	"github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"
	jaegercfg "github.com/uber/jaeger-client-go/config"
	jaegerprom "github.com/uber/jaeger-lib/metrics/prometheus"
)

type logrusLogger struct{}

func (logrusLogger) Error(msg string) {
	logrus.Error(msg)
}

func (logrusLogger) Infof(msg string, args ...interface{}) {
	logrus.Infof(msg, args...)
}

func (logrusLogger) Debugf(msg string, args ...interface{}) {
	logrus.Debugf(msg, args...)
}

// InitGlobalTracer installs a jaeger tracer configured by the standard JAEGER_* environment variables.
// Tracer metrics are exported through the default prometheus registry.
func InitGlobalTracer() (io.Closer, error) {
	cfg, err := jaegercfg.FromEnv()
	if err != nil {
		return nil, fmt.Errorf("parse tracer config: %w", err)
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = common.GetServiceName()
	}
	cfg.Tags = append(cfg.Tags, opentracing.Tag{Key: "instance", Value: common.GetServiceInstance()})

	tracer, closer, err := cfg.NewTracer(
		jaegercfg.Logger(logrusLogger{}),
		jaegercfg.Metrics(jaegerprom.New()),
	)
	if err != nil {
		return nil, fmt.Errorf("create tracer: %w", err)
	}
	opentracing.SetGlobalTracer(tracer)
	return closer, nil
}
