package domain

import (
	"encoding/json"
	"fmt"
)

// ModelStatus describes the lifecycle state of a registered model.
type ModelStatus string

const (
	ModelStatusActive     ModelStatus = "active"
	ModelStatusInactive   ModelStatus = "inactive"
	ModelStatusDeprecated ModelStatus = "deprecated"
)

// ModelInfo describes a model endpoint registered with the hub.
// Identity is the ID; registering an existing ID overwrites the prior record.
type ModelInfo struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Type         string          `json:"type"`
	Endpoint     string          `json:"endpoint"`
	Capabilities []string        `json:"capabilities"`
	Status       ModelStatus     `json:"status"`
	InputSchema  json.RawMessage `json:"input_schema,omitempty"`
	OutputSchema json.RawMessage `json:"output_schema,omitempty"`
}

// Validate checks required fields and defaults the status to active.
func (m *ModelInfo) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("model missing id")
	}
	if m.Name == "" {
		return fmt.Errorf("model missing name")
	}
	if m.Type == "" {
		return fmt.Errorf("model missing type")
	}
	if m.Endpoint == "" {
		return fmt.Errorf("model missing endpoint")
	}
	if m.Capabilities == nil {
		m.Capabilities = []string{}
	}
	switch m.Status {
	case "":
		m.Status = ModelStatusActive
	case ModelStatusActive, ModelStatusInactive, ModelStatusDeprecated:
	default:
		return fmt.Errorf("invalid model status %q", m.Status)
	}
	return nil
}
