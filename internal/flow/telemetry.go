package flow

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/imxin/internal/logging"
	"github.com/fyrsmithlabs/imxin/internal/ruler"
)

const instrumentationName = "github.com/fyrsmithlabs/imxin/internal/flow"

type instruments struct {
	tracer      trace.Tracer
	transitions metric.Int64Counter
	commits     metric.Int64Counter
}

func newInstruments(ctx context.Context, logger *logging.Logger) instruments {
	meter := otel.Meter(instrumentationName)
	ins := instruments{tracer: otel.Tracer(instrumentationName)}

	var err error
	ins.transitions, err = meter.Int64Counter(
		"imxin.flow.transitions",
		metric.WithDescription("Step changes of the check-in flow"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		logger.Warn(ctx, "failed to create transition counter", zap.Error(err))
	}

	ins.commits, err = meter.Int64Counter(
		"imxin.flow.commits",
		metric.WithDescription("Check-in sessions committed to the log"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		logger.Warn(ctx, "failed to create commit counter", zap.Error(err))
	}
	return ins
}

func (i instruments) transition(ctx context.Context, from, to ruler.Step) {
	if i.transitions == nil {
		return
	}
	i.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from.String()),
		attribute.String("to", to.String()),
	))
}

func (i instruments) commit(ctx context.Context, mode string) {
	if i.commits == nil {
		return
	}
	i.commits.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode)))
}
