package calibrate

import (
	"context"
	"errors"
	"testing"

	"github.com/verte-zerg/gyrocall/internal/model"
	"github.com/verte-zerg/gyrocall/internal/sensor"
)

type scriptedCapability struct {
	answers []model.Permission
	calls   int
}

func (c *scriptedCapability) Permission(context.Context) (model.Permission, error) {
	p := c.answers[c.calls%len(c.answers)]
	c.calls++
	return p, nil
}

type brokenCapability struct{}

func (brokenCapability) Permission(context.Context) (model.Permission, error) {
	return model.PermissionPending, errors.New("phone not connected")
}

func TestConfirmDisabledUntilFirstSample(t *testing.T) {
	sampler := sensor.NewSampler()
	step := New(sampler, sensor.Available{})
	if _, err := step.Resolve(context.Background()); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if step.CanConfirm() {
		t.Fatalf("expected confirm to be disabled without a sample")
	}
	if _, err := step.Confirm(); !errors.Is(err, ErrNoSample) {
		t.Fatalf("expected ErrNoSample, got %v", err)
	}
	sampler.Push(sensor.NewReading(12, 3, 0))
	if !step.CanConfirm() {
		t.Fatalf("expected confirm to be enabled after first sample")
	}
	base, err := step.Confirm()
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if base.Alpha != 12 || base.Beta != 3 {
		t.Fatalf("unexpected baseline %+v", base)
	}
	sampler.Push(sensor.NewReading(90, 0, 0))
	if _, err := step.Confirm(); !errors.Is(err, ErrAlreadyCalibrated) {
		t.Fatalf("expected ErrAlreadyCalibrated, got %v", err)
	}
	if got, _ := step.Baseline(); got.Alpha != 12 {
		t.Fatalf("expected baseline to stay frozen, got %+v", got)
	}
}

func TestPermissionResolvedOnce(t *testing.T) {
	capability := &scriptedCapability{answers: []model.Permission{model.PermissionGranted, model.PermissionDenied}}
	step := New(sensor.NewSampler(), capability)
	for i := 0; i < 3; i++ {
		p, err := step.Resolve(context.Background())
		if err != nil || p != model.PermissionGranted {
			t.Fatalf("expected cached granted, got %v (%v)", p, err)
		}
	}
	if capability.calls != 1 {
		t.Fatalf("expected one query, got %d", capability.calls)
	}
}

func TestDeniedBlocksUntilRetry(t *testing.T) {
	sampler := sensor.NewSampler()
	sampler.Push(sensor.NewReading(0, 0, 0))
	capability := &scriptedCapability{answers: []model.Permission{model.PermissionDenied, model.PermissionGranted}}
	step := New(sampler, capability)
	if p, _ := step.Resolve(context.Background()); p != model.PermissionDenied {
		t.Fatalf("expected denied, got %v", p)
	}
	if _, err := step.Confirm(); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if p, _ := step.Resolve(context.Background()); p != model.PermissionDenied {
		t.Fatalf("expected no automatic retry, got %v", p)
	}
	if p, _ := step.Retry(context.Background()); p != model.PermissionGranted {
		t.Fatalf("expected granted after retry, got %v", p)
	}
	if !step.CanConfirm() {
		t.Fatalf("expected confirm to be enabled after retry")
	}
}

func TestQueryErrorLeavesPending(t *testing.T) {
	step := New(sensor.NewSampler(), brokenCapability{})
	if _, err := step.Resolve(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if step.Permission() != model.PermissionPending {
		t.Fatalf("expected pending, got %v", step.Permission())
	}
	if _, err := step.Confirm(); !errors.Is(err, ErrPermissionPending) {
		t.Fatalf("expected ErrPermissionPending, got %v", err)
	}
}
