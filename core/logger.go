package core

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func consoleSink() *os.File { return os.Stdout }

// LoggingConfig configures the process-wide logger.
type LoggingConfig struct {
	Level  string `json:"level" env:"HARVEST_LOG_LEVEL" default:"info"`
	Format string `json:"format" env:"HARVEST_LOG_FORMAT" default:"text"` // "text" or "json"
}

// ProductionLogger is the zap-backed Logger used outside of tests. It
// layers three things over a raw zap.SugaredLogger:
//
//  1. console output, always on, via zap's console or json encoder
//  2. a fixed "component" field stamped on every line via WithComponent
//  3. a metric-operations counter through core.GetGlobalMetricsRegistry,
//     once telemetry.Initialize has run
type ProductionLogger struct {
	sugar     *zap.SugaredLogger
	component string
}

// NewProductionLogger builds a Logger from LoggingConfig. serviceName is
// stamped on every log line as the "service" field.
func NewProductionLogger(cfg LoggingConfig, serviceName string) Logger {
	level := zapcore.InfoLevel
	_ = level.UnmarshalText([]byte(strings.ToLower(cfg.Level)))

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if strings.EqualFold(cfg.Format, "json") {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(consoleSink())), level)
	zl := zap.New(core).With(zap.String("service", serviceName))

	return &ProductionLogger{sugar: zl.Sugar(), component: "harvester"}
}

// WithComponent returns a logger that stamps the given component on
// every subsequent line, without mutating the receiver.
func (p *ProductionLogger) WithComponent(component string) Logger {
	return &ProductionLogger{sugar: p.sugar, component: component}
}

func (p *ProductionLogger) Info(msg string, fields map[string]interface{}) {
	p.log(zapcore.InfoLevel, msg, fields, nil)
}
func (p *ProductionLogger) Error(msg string, fields map[string]interface{}) {
	p.log(zapcore.ErrorLevel, msg, fields, nil)
}
func (p *ProductionLogger) Warn(msg string, fields map[string]interface{}) {
	p.log(zapcore.WarnLevel, msg, fields, nil)
}
func (p *ProductionLogger) Debug(msg string, fields map[string]interface{}) {
	p.log(zapcore.DebugLevel, msg, fields, nil)
}

func (p *ProductionLogger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.log(zapcore.InfoLevel, msg, fields, ctx)
}
func (p *ProductionLogger) ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.log(zapcore.ErrorLevel, msg, fields, ctx)
}
func (p *ProductionLogger) WarnWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.log(zapcore.WarnLevel, msg, fields, ctx)
}
func (p *ProductionLogger) DebugWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.log(zapcore.DebugLevel, msg, fields, ctx)
}

func (p *ProductionLogger) log(level zapcore.Level, msg string, fields map[string]interface{}, ctx context.Context) {
	args := make([]interface{}, 0, 2+2*len(fields))
	args = append(args, "component", p.component)
	for k, v := range fields {
		args = append(args, k, v)
	}

	switch level {
	case zapcore.DebugLevel:
		p.sugar.Debugw(msg, args...)
	case zapcore.WarnLevel:
		p.sugar.Warnw(msg, args...)
	case zapcore.ErrorLevel:
		p.sugar.Errorw(msg, args...)
	default:
		p.sugar.Infow(msg, args...)
	}

	if registry := GetGlobalMetricsRegistry(); registry != nil {
		labels := []string{"level", level.String(), "component", p.component}
		if errType, ok := fields["error_type"]; ok {
			labels = append(labels, "error_type", fmt.Sprintf("%v", errType))
		}
		if ctx != nil {
			registry.EmitWithContext(ctx, "harvester.log.lines", 1, labels...)
		} else {
			registry.Counter("harvester.log.lines", labels...)
		}
	}
}
