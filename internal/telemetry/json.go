// internal/telemetry/json.go
package telemetry

import (
	"errors"

	jsoniter "github.com/json-iterator/go"

	"github.com/tamzrod/openracer/internal/status"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Sender carries one encoded message.
type Sender interface {
	Send(p []byte) error
}

// statusMessage is the JSON frame pushed to the controlling peer.
type statusMessage struct {
	Type   string `json:"type"`
	Name   string `json:"name,omitempty"`
	Health string `json:"health_name"`
	status.Snapshot
}

// JSONPublisher pushes snapshots as single-line JSON messages.
type JSONPublisher struct {
	out  Sender
	name string
}

func NewJSONPublisher(out Sender, name string) (*JSONPublisher, error) {
	if out == nil {
		return nil, errors.New("json publisher: sender required")
	}
	return &JSONPublisher{out: out, name: name}, nil
}

func (p *JSONPublisher) WriteStatus(s status.Snapshot) error {
	b, err := json.Marshal(statusMessage{
		Type:     "status",
		Name:     p.name,
		Health:   status.HealthName(s.Health),
		Snapshot: s,
	})
	if err != nil {
		return err
	}
	return p.out.Send(append(b, '\n'))
}
