package domain

import (
	"encoding/json"
	"fmt"
)

type Action string

const (
	Action_Partial Action = "partial"
	Action_Insert  Action = "insert"
	Action_Update  Action = "update"
	Action_Delete  Action = "delete"
)

// TableMessage is a data frame of the realtime feed.
type TableMessage struct {
	Table  string            `json:"table"`
	Action Action            `json:"action"`
	Data   []json.RawMessage `json:"data"`
	Keys   []string          `json:"keys,omitempty"`
}

// ControlMessage covers the non-table frames: welcome info, subscribe acks and errors.
type ControlMessage struct {
	Info      string          `json:"info,omitempty"`
	Success   *bool           `json:"success,omitempty"`
	Subscribe string          `json:"subscribe,omitempty"`
	Error     string          `json:"error,omitempty"`
	Request   json.RawMessage `json:"request,omitempty"`
}

// Frame is one decoded inbound websocket message. Exactly one of Table / Control is set.
type Frame struct {
	Table   *TableMessage
	Control *ControlMessage
}

func ParseFrame(raw []byte) (*Frame, error) {
	var probe struct {
		Table  *string `json:"table"`
		Action *string `json:"action"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMessageParse, err)
	}

	if probe.Action != nil {
		msg := &TableMessage{}
		if err := json.Unmarshal(raw, msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMessageParse, err)
		}
		if msg.Table == "" {
			return nil, fmt.Errorf("%w: action %q without table", ErrMessageParse, msg.Action)
		}
		return &Frame{Table: msg}, nil
	}

	ctrl := &ControlMessage{}
	if err := json.Unmarshal(raw, ctrl); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMessageParse, err)
	}
	return &Frame{Control: ctrl}, nil
}

// L2Row is a row of orderBookL2 tables. Price is absent on update and delete.
type L2Row struct {
	Symbol string   `json:"symbol"`
	ID     uint64   `json:"id"`
	Side   string   `json:"side"`
	Size   *uint64  `json:"size,omitempty"`
	Price  *float64 `json:"price,omitempty"`
}

func ParseL2Row(raw json.RawMessage) (*L2Row, error) {
	row := &L2Row{}
	if err := json.Unmarshal(raw, row); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMessageParse, err)
	}
	if _, err := ParseSide(row.Side); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMessageParse, err)
	}
	return row, nil
}

// Command is an outbound control message, e.g. {"op":"subscribe","args":["orderBookL2:XBTUSD"]}.
type Command struct {
	Op   string   `json:"op"`
	Args []string `json:"args"`
}

func NewSubscribeCommand(topics []string) Command {
	args := make([]string, len(topics))
	copy(args, topics)
	return Command{Op: "subscribe", Args: args}
}
