package worker

import "context"

// OpenBookingsBroadcaster повторно рассылает открытые бронирования
type OpenBookingsBroadcaster interface {
	RebroadcastOpen(ctx context.Context) (int, error)
}

// RebroadcastMetrics счётчик проходов повторной рассылки
type RebroadcastMetrics interface {
	IncRebroadcast()
}

// Rebroadcaster уведомляет о незакрытых бронированиях преподавателей,
// которые ещё не получали рассылку (новые или снова активные)
type Rebroadcaster struct {
	engine  OpenBookingsBroadcaster
	metrics RebroadcastMetrics
	logger  Logger
}

func NewRebroadcaster(engine OpenBookingsBroadcaster, metrics RebroadcastMetrics, logger Logger) *Rebroadcaster {
	return &Rebroadcaster{engine: engine, metrics: metrics, logger: logger}
}

func (r *Rebroadcaster) Name() string { return "rebroadcaster" }

func (r *Rebroadcaster) Run(ctx context.Context) error {
	r.metrics.IncRebroadcast()

	notified, err := r.engine.RebroadcastOpen(ctx)
	if err != nil {
		return err
	}
	if notified > 0 {
		r.logger.Info("Rebroadcaster: %d tutor notifications sent", notified)
	}
	return nil
}
