package types

import pub "github.com/DoyleJ11/stage-quiz-backend/pkg/types"

// ClientMessage is the union of every inbound event's fields. Request selects
// the event; only the fields that event uses are read.
type ClientMessage struct {
	Request   string        `json:"request"`
	RequestID string        `json:"requestId"`
	Auth      string        `json:"auth,omitempty"`
	Token     string        `json:"token,omitempty"`
	Code      string        `json:"code,omitempty"`
	Nickname  string        `json:"nickname,omitempty"`
	RoomID    string        `json:"roomID,omitempty"`
	Position  *pub.Position `json:"position,omitempty"`
	Game      string        `json:"game,omitempty"`
	Number    int           `json:"number,omitempty"`
	Name      string        `json:"name,omitempty"`
	Stages    []string      `json:"stages,omitempty"`
	Dict      [][2]string   `json:"dict,omitempty"`
}
