package amqp

import (
	"encoding/json"
	"time"

	"cattlevalue/internal/herd"
)

// HerdChangedMessage announces one herd mutation. It carries no animal data;
// consumers read the current herd from storage.
type HerdChangedMessage struct {
	Operation string    `json:"operation"`
	CattleID  string    `json:"cattle_id,omitempty"`
	Version   uint64    `json:"version"`
	HerdSize  int       `json:"herd_size"`
	Timestamp time.Time `json:"timestamp"`
}

func NewHerdChangedMessage(c herd.Change) *HerdChangedMessage {
	return &HerdChangedMessage{
		Operation: c.Operation,
		CattleID:  c.CattleID,
		Version:   c.Version,
		HerdSize:  c.HerdSize,
		Timestamp: time.Now(),
	}
}

// Change converts the message back to the domain value.
func (m *HerdChangedMessage) Change() herd.Change {
	return herd.Change{
		Operation: m.Operation,
		CattleID:  m.CattleID,
		Version:   m.Version,
		HerdSize:  m.HerdSize,
	}
}

func (m *HerdChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func HerdChangedMessageFromJSON(data []byte) (*HerdChangedMessage, error) {
	var msg HerdChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
