// Package feed subscribes to orientation readings published on a message
// broker.
package feed

import (
	"encoding/json"
	"fmt"

	"github.com/verte-zerg/gyrocall/internal/angle"
	"github.com/verte-zerg/gyrocall/internal/sensor"
)

// payload accepts both the browser event shape (alpha/beta/gamma) and an
// IMU pose (roll/pitch/yaw).
type payload struct {
	Alpha *float64 `json:"alpha"`
	Beta  *float64 `json:"beta"`
	Gamma *float64 `json:"gamma"`
	Roll  *float64 `json:"roll"`
	Pitch *float64 `json:"pitch"`
	Yaw   *float64 `json:"yaw"`
}

// Decode converts a broker message into a reading. A pose maps yaw to the
// compass heading, pitch to front-back tilt and roll to left-right tilt.
func Decode(data []byte) (sensor.Reading, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return sensor.Reading{}, fmt.Errorf("decode orientation payload: %w", err)
	}
	if p.Alpha != nil || p.Beta != nil {
		return sensor.Reading{Alpha: p.Alpha, Beta: p.Beta, Gamma: p.Gamma}, nil
	}
	if p.Yaw != nil || p.Pitch != nil {
		r := sensor.Reading{Beta: p.Pitch, Gamma: p.Roll}
		if p.Yaw != nil {
			heading := angle.Normalize(*p.Yaw)
			r.Alpha = &heading
		}
		return r, nil
	}
	return sensor.Reading{}, fmt.Errorf("payload has no orientation fields")
}
