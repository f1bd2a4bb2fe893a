package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ReportRequestMessage asks the worker to analyze one pending report.
// The worker loads the owner's transactions itself; the message carries only
// identifiers.
type ReportRequestMessage struct {
	ReportID  uuid.UUID `json:"report_id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Window    string    `json:"window"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReportRequestMessage(reportID, ownerID uuid.UUID, window string) *ReportRequestMessage {
	return &ReportRequestMessage{
		ReportID:  reportID,
		OwnerID:   ownerID,
		Window:    window,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ReportRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportRequestMessageFromJSON decodes a message and rejects ones missing
// either identifier.
func ReportRequestMessageFromJSON(data []byte) (*ReportRequestMessage, error) {
	var msg ReportRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ReportID == uuid.Nil || msg.OwnerID == uuid.Nil {
		return nil, errors.New("report request without report or owner id")
	}
	return &msg, nil
}
