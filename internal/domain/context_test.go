package domain

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func TestContext_MergeSharedMemory(t *testing.T) {
	c := NewContext("s1")
	c.SharedMemory["a"] = json.RawMessage(`1`)

	c.MergeSharedMemory(map[string]json.RawMessage{"b": json.RawMessage(`2`)})

	if string(c.SharedMemory["a"]) != "1" || string(c.SharedMemory["b"]) != "2" {
		t.Errorf("Expected additive merge, got %v", c.SharedMemory)
	}

	c.MergeSharedMemory(map[string]json.RawMessage{"a": json.RawMessage(`9`)})
	if string(c.SharedMemory["a"]) != "9" {
		t.Errorf("Expected collision overwrite, got %s", c.SharedMemory["a"])
	}
}

func TestContext_AddModelsDeduplicates(t *testing.T) {
	c := NewContext("s1")
	c.Models = []string{"x"}

	c.AddModels([]string{"x", "y"})

	want := []string{"x", "y"}
	if !reflect.DeepEqual(c.Models, want) {
		t.Errorf("Expected %v, got %v", want, c.Models)
	}

	// Repeated union must not grow the set.
	c.AddModels([]string{"y", "x"})
	if !reflect.DeepEqual(c.Models, want) {
		t.Errorf("Expected %v after repeated union, got %v", want, c.Models)
	}
}

func TestContext_SortedMessagesStable(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewContext("s1")
	// Appended out of order; m2 and m3 share a timestamp.
	c.Append(Message{ID: "m1", ModelID: "a", Content: json.RawMessage(`"x"`), Timestamp: base.Add(time.Minute)})
	c.Append(Message{ID: "m2", ModelID: "a", Content: json.RawMessage(`"y"`), Timestamp: base})
	c.Append(Message{ID: "m3", ModelID: "a", Content: json.RawMessage(`"z"`), Timestamp: base})

	sorted := c.SortedMessages()

	gotIDs := []string{sorted[0].ID, sorted[1].ID, sorted[2].ID}
	want := []string{"m2", "m3", "m1"}
	if !reflect.DeepEqual(gotIDs, want) {
		t.Errorf("Expected order %v, got %v", want, gotIDs)
	}

	// The context itself keeps insertion order.
	if c.Messages[0].ID != "m1" {
		t.Errorf("SortedMessages must not mutate the context, got first message %s", c.Messages[0].ID)
	}
}

func TestContext_NormalizeRealignsSessionID(t *testing.T) {
	var c Context
	if err := json.Unmarshal([]byte(`{"session_id":"other"}`), &c); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	c.Normalize("s1")

	if c.SessionID != "s1" {
		t.Errorf("Expected session_id s1, got %s", c.SessionID)
	}
	if c.Messages == nil || c.SharedMemory == nil || c.Models == nil {
		t.Error("Expected nil collections to be repaired")
	}
}

func TestMessage_Validate(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		wantErr bool
	}{
		{"valid", Message{ID: "m1", ModelID: "x", Content: json.RawMessage(`"hi"`)}, false},
		{"missing id", Message{ModelID: "x", Content: json.RawMessage(`"hi"`)}, true},
		{"missing model_id", Message{ID: "m1", Content: json.RawMessage(`"hi"`)}, true},
		{"missing content", Message{ID: "m1", ModelID: "x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestModelInfo_ValidateDefaultsStatus(t *testing.T) {
	info := ModelInfo{ID: "m1", Name: "GPT", Type: "llm", Endpoint: "http://llm.local"}
	if err := info.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if info.Status != ModelStatusActive {
		t.Errorf("Expected default status active, got %s", info.Status)
	}
	if info.Capabilities == nil {
		t.Error("Expected capabilities to default to an empty slice")
	}

	info.Status = "retired"
	if err := info.Validate(); err == nil {
		t.Error("Expected error for invalid status")
	}
}
