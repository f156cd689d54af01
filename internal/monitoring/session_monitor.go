package monitoring

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Revalidator re-checks a signed-in session against the server.
type Revalidator interface {
	Revalidate(ctx context.Context) error
}

// SessionMonitor periodically asks the server whether the stored token is
// still accepted, so an expired session is noticed without a failed page.
type SessionMonitor struct {
	session Revalidator
	spec    string
	timeout time.Duration
	cron    *cron.Cron
}

// NewSessionMonitor validates spec (standard cron syntax or a descriptor
// such as "@every 15m") and returns a stopped monitor.
func NewSessionMonitor(session Revalidator, spec string, timeout time.Duration) (*SessionMonitor, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, err
	}
	return &SessionMonitor{session: session, spec: spec, timeout: timeout}, nil
}

// Start schedules the check.
func (m *SessionMonitor) Start() error {
	m.cron = cron.New()
	if _, err := m.cron.AddFunc(m.spec, m.check); err != nil {
		return err
	}
	log.Info().Str("schedule", m.spec).Msg("Starting session monitor")
	m.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running check to finish.
func (m *SessionMonitor) Stop() {
	if m.cron == nil {
		return
	}
	<-m.cron.Stop().Done()
	log.Info().Msg("Stopped session monitor")
}

func (m *SessionMonitor) check() {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	if err := m.session.Revalidate(ctx); err != nil {
		log.Warn().Err(err).Msg("Session revalidation failed")
	}
}
