package feed

import (
	"testing"
)

func TestDecodeBrowserShape(t *testing.T) {
	r, err := Decode([]byte(`{"alpha":350,"beta":-12.5,"gamma":3}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	s, ok := r.Sample()
	if !ok || s.Alpha != 350 || s.Beta != -12.5 || s.Gamma != 3 {
		t.Fatalf("unexpected sample %+v (%v)", s, ok)
	}
}

func TestDecodePose(t *testing.T) {
	r, err := Decode([]byte(`{"roll":5,"pitch":20,"yaw":-90}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	s, ok := r.Sample()
	if !ok {
		t.Fatalf("expected valid sample")
	}
	if s.Alpha != 270 || s.Beta != 20 || s.Gamma != 5 {
		t.Fatalf("unexpected pose mapping %+v", s)
	}
}

func TestDecodePartialPoseIsDroppedBySampler(t *testing.T) {
	r, err := Decode([]byte(`{"pitch":20}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := r.Sample(); ok {
		t.Fatalf("expected pose without yaw to be invalid")
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, in := range []string{`not json`, `{"temperature":21}`} {
		if _, err := Decode([]byte(in)); err == nil {
			t.Fatalf("expected error for %s", in)
		}
	}
}
