package aggregates

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/alerts"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/ledger"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/eventbus"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/logger"
	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const eventSource = "finsight-scan"

// Propagator applies one classified message to the user rollup, the global
// rollup and the alert feed. The three writes are independent.
type Propagator struct {
	rollups   RepositoryInterface
	alerts    alerts.RepositoryInterface
	publisher eventbus.Publisher
}

// NewPropagator creates a propagator. publisher may be nil.
func NewPropagator(rollups RepositoryInterface, alertRepo alerts.RepositoryInterface, publisher eventbus.Publisher) *Propagator {
	return &Propagator{rollups: rollups, alerts: alertRepo, publisher: publisher}
}

// Apply records msg in every aggregate that has not seen it yet. All three
// sub-updates are attempted; failures are joined into the returned error and
// the result still reports the ones that succeeded.
func (p *Propagator) Apply(ctx context.Context, msg *ledger.ClassifiedMessage, location *alerts.Coordinates) (*PropagationResult, error) {
	if msg == nil {
		return nil, errors.New("aggregates: nil message")
	}

	ctx, span := tracing.Start(ctx, "aggregates", "aggregates.Apply",
		attribute.String("message.id", msg.ID.String()),
		attribute.String("message.label", string(msg.Label)),
	)

	delta := DeltaFor(msg)
	result := &PropagationResult{MessageID: msg.ID}
	var errs []error

	if applied, err := p.rollups.ApplyUser(ctx, delta); err != nil {
		errs = append(errs, fmt.Errorf("user rollup: %w", err))
	} else {
		result.UserApplied = applied
	}

	if applied, err := p.rollups.ApplyGlobal(ctx, delta); err != nil {
		errs = append(errs, fmt.Errorf("global rollup: %w", err))
	} else {
		result.GlobalApplied = applied
	}

	if msg.Label.IsAlert() {
		if err := p.applyAlert(ctx, msg, location, result); err != nil {
			errs = append(errs, fmt.Errorf("alert feed: %w", err))
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		logger.WithContext(ctx).Warn("partial propagation",
			zap.String("message_id", msg.ID.String()),
			zap.Bool("user_applied", result.UserApplied),
			zap.Bool("global_applied", result.GlobalApplied),
			zap.Bool("alert_created", result.AlertCreated),
			zap.Error(err),
		)
	}
	tracing.End(span, err)
	return result, err
}

func (p *Propagator) applyAlert(ctx context.Context, msg *ledger.ClassifiedMessage, location *alerts.Coordinates, result *PropagationResult) error {
	candidate, err := alerts.NewAlert(alerts.Source{
		UserID:     msg.UserID,
		MessageID:  msg.ID,
		Sender:     msg.Sender,
		Text:       msg.Text,
		Label:      msg.Label,
		Confidence: msg.Confidence,
	}, location)
	if err != nil {
		return err
	}

	stored, created, err := p.alerts.CreateIfAbsent(ctx, candidate)
	if err != nil {
		return err
	}
	result.Alert = stored
	result.AlertCreated = created

	if created {
		p.publishAlertCreated(ctx, stored)
	}
	return nil
}

func (p *Propagator) publishAlertCreated(ctx context.Context, a *alerts.Alert) {
	if p.publisher == nil {
		return
	}

	event, err := eventbus.NewEvent(eventbus.EventAlertCreated, eventSource, eventbus.AlertCreatedData{
		AlertID:    a.ID,
		MessageID:  a.MessageID,
		UserID:     a.UserID,
		Severity:   string(a.Severity),
		Label:      string(a.Label),
		Confidence: a.Confidence,
		Located:    a.Location != nil,
		CreatedAt:  a.CreatedAt,
	})
	if err == nil {
		err = p.publisher.Publish(ctx, eventbus.SubjectAlertCreated, event)
	}
	if err != nil {
		logger.WithContext(ctx).Warn("failed to publish alert.created",
			zap.String("alert_id", a.ID.String()),
			zap.Error(err),
		)
	}
}
