// Package flake gera ids únicos aproximadamente ordenados no tempo.
package flake

import (
	"errors"
	"time"

	"github.com/sony/sonyflake"

	"github.com/JeanGrijp/url-shortener/internal/core/ports"
)

// Epoch is the start time of the id space.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type Generator struct {
	flake *sonyflake.Sonyflake
}

var _ ports.IDGenerator = (*Generator)(nil)

// New returns a generator for the given machine id. A zero machineID lets
// sonyflake derive one from the private IP address.
func New(machineID uint16) (*Generator, error) {
	settings := sonyflake.Settings{StartTime: Epoch}
	if machineID != 0 {
		settings.MachineID = func() (uint16, error) { return machineID, nil }
	}

	flake := sonyflake.NewSonyflake(settings)
	if flake == nil {
		return nil, errors.New("sonyflake could not be initialized")
	}
	return &Generator{flake: flake}, nil
}

func (g *Generator) NextID() (uint64, error) {
	return g.flake.NextID()
}
