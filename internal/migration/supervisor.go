package migration

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"solana-migration-sniper/internal/observability"
	"solana-migration-sniper/internal/solana"
)

// DialFunc opens a fresh websocket client.
type DialFunc func(ctx context.Context) (solana.WSClient, error)

// Supervisor keeps a logs subscription alive for the correlator. On any
// transport failure it tears the connection down, waits a fixed delay and
// subscribes again. The correlator's map is untouched across reconnects.
type Supervisor struct {
	dial           DialFunc
	correlator     *Correlator
	mentions       []string
	reconnectDelay time.Duration
	log            zerolog.Logger
}

// SupervisorOptions configures a Supervisor.
type SupervisorOptions struct {
	Dial           DialFunc
	Correlator     *Correlator
	Mentions       []string // accounts the logs filter must mention
	ReconnectDelay time.Duration
	Logger         zerolog.Logger
}

// NewSupervisor creates a stream supervisor.
func NewSupervisor(opts SupervisorOptions) *Supervisor {
	delay := opts.ReconnectDelay
	if delay == 0 {
		delay = 15 * time.Second
	}
	return &Supervisor{
		dial:           opts.Dial,
		correlator:     opts.Correlator,
		mentions:       opts.Mentions,
		reconnectDelay: delay,
		log:            opts.Logger,
	}
}

// Run supervises the subscription until ctx is cancelled. Returns ctx.Err().
func (s *Supervisor) Run(ctx context.Context) error {
	first := true
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !first {
			observability.RecordStreamReconnect()
			s.log.Info().Dur("delay", s.reconnectDelay).Msg("reconnecting log stream")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.reconnectDelay):
			}
		}
		first = false

		if err := s.streamOnce(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn().Err(err).Msg("log stream failed")
		}
	}
}

// streamOnce dials, subscribes and consumes notifications until the channel
// closes or ctx is cancelled.
func (s *Supervisor) streamOnce(ctx context.Context) error {
	client, err := s.dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	ch, err := client.SubscribeLogs(ctx, solana.LogsFilter{Mentions: s.mentions})
	if err != nil {
		return err
	}
	s.log.Info().Strs("mentions", s.mentions).Msg("log subscription established")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case note, ok := <-ch:
			if !ok {
				return nil
			}
			s.correlator.HandleNotification(ctx, note)
		}
	}
}
