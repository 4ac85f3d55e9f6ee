// Package calibrate gates a session on sensor permission and captures the
// baseline orientation.
package calibrate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/verte-zerg/gyrocall/internal/model"
)

var (
	// ErrNoSample is returned when confirming before any valid sample arrived.
	ErrNoSample = errors.New("no orientation sample yet")
	// ErrPermissionDenied is returned while sensor access is refused.
	ErrPermissionDenied = errors.New("sensor permission denied")
	// ErrPermissionPending is returned before the permission query resolved.
	ErrPermissionPending = errors.New("sensor permission not resolved")
	// ErrAlreadyCalibrated is returned on a second confirmation.
	ErrAlreadyCalibrated = errors.New("baseline already captured")
)

// Sampler supplies the latest orientation.
type Sampler interface {
	Latest() (model.OrientationSample, bool)
}

// Capability answers the sensor permission query.
type Capability interface {
	Permission(ctx context.Context) (model.Permission, error)
}

// Step is the calibration screen's state. It is safe for concurrent use so
// the permission query can run in the background.
type Step struct {
	sampler Sampler
	cap     Capability

	mu         sync.Mutex
	permission model.Permission
	baseline   *model.OrientationSample
}

// New returns a Step with an unresolved permission.
func New(sampler Sampler, capability Capability) *Step {
	return &Step{sampler: sampler, cap: capability}
}

// Resolve queries the capability once and caches the result. Later calls
// return the cached value; use Retry after a denial.
func (s *Step) Resolve(ctx context.Context) (model.Permission, error) {
	s.mu.Lock()
	if s.permission != model.PermissionPending {
		p := s.permission
		s.mu.Unlock()
		return p, nil
	}
	s.mu.Unlock()
	return s.query(ctx)
}

// Retry re-runs the permission query. It is only meaningful after a denial.
func (s *Step) Retry(ctx context.Context) (model.Permission, error) {
	s.mu.Lock()
	if s.permission != model.PermissionDenied {
		p := s.permission
		s.mu.Unlock()
		return p, nil
	}
	s.permission = model.PermissionPending
	s.mu.Unlock()
	return s.query(ctx)
}

func (s *Step) query(ctx context.Context) (model.Permission, error) {
	p, err := s.cap.Permission(ctx)
	if err != nil {
		return model.PermissionPending, fmt.Errorf("query sensor permission: %w", err)
	}
	s.mu.Lock()
	s.permission = p
	s.mu.Unlock()
	return p, nil
}

// Permission returns the cached permission state.
func (s *Step) Permission() model.Permission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permission
}

// Live returns the latest sample for display.
func (s *Step) Live() (model.OrientationSample, bool) {
	return s.sampler.Latest()
}

// CanConfirm reports whether Confirm would succeed now.
func (s *Step) CanConfirm() bool {
	return s.check() == nil
}

func (s *Step) check() error {
	s.mu.Lock()
	perm := s.permission
	done := s.baseline != nil
	s.mu.Unlock()
	switch {
	case done:
		return ErrAlreadyCalibrated
	case perm == model.PermissionDenied:
		return ErrPermissionDenied
	case !perm.Usable():
		return ErrPermissionPending
	}
	if _, ok := s.sampler.Latest(); !ok {
		return ErrNoSample
	}
	return nil
}

// Confirm freezes the latest sample as the baseline. It succeeds at most
// once.
func (s *Step) Confirm() (model.OrientationSample, error) {
	if err := s.check(); err != nil {
		return model.OrientationSample{}, err
	}
	sample, ok := s.sampler.Latest()
	if !ok {
		return model.OrientationSample{}, ErrNoSample
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.baseline != nil {
		return model.OrientationSample{}, ErrAlreadyCalibrated
	}
	s.baseline = &sample
	return sample, nil
}

// Baseline returns the captured baseline.
func (s *Step) Baseline() (model.OrientationSample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.baseline == nil {
		return model.OrientationSample{}, false
	}
	return *s.baseline, true
}
