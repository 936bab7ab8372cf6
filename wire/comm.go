package wire

import "encoding/json"

// CommOpen opens a secondary logical channel multiplexed over the primary
// transport. Data is the target-specific open payload.
type CommOpen struct {
	CommID     string          `json:"comm_id"`
	TargetName string          `json:"target_name"`
	Data       json.RawMessage `json:"data"`
}

func (*CommOpen) MessageType() string { return TypeCommOpen }

// CommMsg carries one payload on an open comm.
type CommMsg struct {
	CommID string          `json:"comm_id"`
	Data   json.RawMessage `json:"data"`
}

func (*CommMsg) MessageType() string { return TypeCommMsg }

// CommClose retires a comm from either side.
type CommClose struct {
	CommID string          `json:"comm_id"`
	Data   json.RawMessage `json:"data,omitempty"`
}

func (*CommClose) MessageType() string { return TypeCommClose }

// CommInfoRequest asks which comms are open, optionally filtered by
// target name.
type CommInfoRequest struct {
	TargetName string `json:"target_name,omitempty"`
}

func (*CommInfoRequest) MessageType() string { return TypeCommInfoRequest }

// CommDescription names the target of one open comm.
type CommDescription struct {
	TargetName string `json:"target_name"`
}

// CommInfoReply lists the open comms keyed by comm id.
type CommInfoReply struct {
	Status string                     `json:"status"`
	Comms  map[string]CommDescription `json:"comms"`
}

func (*CommInfoReply) MessageType() string { return TypeCommInfoReply }
