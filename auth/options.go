package auth

import (
	"time"

	"github.com/rs/zerolog"
)

// Outcomes reported to a Recorder.
const (
	OutcomeSuccess        = "success"
	OutcomeInvalidInput   = "invalid_input"
	OutcomeUnknownEmail   = "unknown_email"
	OutcomeBadPassword    = "bad_password"
	OutcomeCallerMismatch = "caller_mismatch"
	OutcomeRejected       = "rejected"
	OutcomeError          = "error"
)

// Recorder observes credential events, typically to export metrics.
type Recorder interface {
	LoginAttempt(outcome string)
	ChangeRequested(outcome string)
	ChangeConfirmed(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) LoginAttempt(string)    {}
func (nopRecorder) ChangeRequested(string) {}
func (nopRecorder) ChangeConfirmed(string) {}

type settings struct {
	logger   zerolog.Logger
	recorder Recorder
	nowTime  func() time.Time
}

func newSettings(options []Option) settings {
	s := settings{
		logger:   zerolog.Nop(),
		recorder: nopRecorder{},
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(&s)
	}
	return s
}

// Option configures the services in this package.
type Option func(*settings)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

func WithRecorder(recorder Recorder) Option {
	return func(s *settings) {
		if recorder != nil {
			s.recorder = recorder
		}
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *settings) {
		s.nowTime = nowFunc
	}
}
