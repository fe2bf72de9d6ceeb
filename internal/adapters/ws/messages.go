package ws

import (
	"encoding/json"
	"fmt"
	"time"

	"estatebid-auction-service/internal/domain/shared"

	"github.com/google/uuid"
)

type MessageType string

// The live feed is read-only: clients subscribe to auctions and receive
// events. Bids and auction management go through the HTTP API.
const (
	// Client to Server message types
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypePing        MessageType = "ping"

	// Server to Client message types
	MessageTypeBidPlaced       MessageType = "bid_placed"
	MessageTypeAuctionExtended MessageType = "auction_extended"
	MessageTypeAuctionEnded    MessageType = "auction_ended"
	MessageTypeAuctionUpdate   MessageType = "auction_update"
	MessageTypeError           MessageType = "error"
	MessageTypePong            MessageType = "pong"
)

type ClientMessage struct {
	Type      MessageType `json:"type"`
	AuctionID *uuid.UUID  `json:"auction_id,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// ServerMessage represents a message sent from server to client
type ServerMessage struct {
	Type      MessageType            `json:"type"`
	AuctionID *uuid.UUID             `json:"auction_id,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Error     *string                `json:"error,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

func NewServerMessage(msgType MessageType) *ServerMessage {
	return &ServerMessage{
		Type:      msgType,
		Data:      make(map[string]interface{}),
		Timestamp: time.Now().Unix(),
	}
}

func NewErrorMessage(err string, auctionID *uuid.UUID) *ServerMessage {
	return &ServerMessage{
		Type:      MessageTypeError,
		AuctionID: auctionID,
		Error:     &err,
		Timestamp: time.Now().Unix(),
	}
}

func (m *ClientMessage) validateAuctionID() error {
	if m.AuctionID == nil || *m.AuctionID == uuid.Nil {
		return shared.ErrAuctionIDRequired
	}
	return nil
}

// ParseClientMessage parses a JSON message from client
func ParseClientMessage(data []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse client message: %w", err)
	}

	if msg.Type == "" {
		return nil, shared.ErrMessageTypeRequired
	}

	return &msg, nil
}

// Validate validates a client message
func (m *ClientMessage) Validate() error {
	switch m.Type {
	case MessageTypeSubscribe, MessageTypeUnsubscribe:
		if err := m.validateAuctionID(); err != nil {
			return err
		}
	case MessageTypePing:

	default:
		return shared.ErrUnknownMessageType
	}

	return nil
}
