package types

type MessageType string

const (
	TypeError   MessageType = "error"
	TypeSuccess MessageType = "success"
	TypeJoined  MessageType = "joined"
	TypeRoom    MessageType = "room"
	TypeWin     MessageType = "win"
	TypeTeams   MessageType = "teams"
	TypeStart   MessageType = "start"
	TypeSession MessageType = "session"
	TypeRoster  MessageType = "roster"
	TypeAuth    MessageType = "auth"
	TypeGames   MessageType = "games"
	TypeSelf    MessageType = "self"
)

// ServerMessage is the only frame the server writes. ResponseID echoes the
// requestId of the event it answers, or the requestId the recipient joined
// with for pushes. Exactly one payload field is set, matching Type.
type ServerMessage struct {
	Type       MessageType `json:"type"`
	ResponseID string      `json:"responseId"`

	Error     string        `json:"error,omitempty"`
	Success   bool          `json:"success,omitempty"`
	GameID    string        `json:"game,omitempty"`
	StageData []StageCard   `json:"stageData,omitempty"`
	Room      *RoomSnapshot `json:"room,omitempty"`
	Win       *WinEvent     `json:"win,omitempty"`
	Teams     *TeamsEvent   `json:"teams,omitempty"`
	Start     bool          `json:"start,omitempty"`
	Session   *SessionInfo  `json:"session,omitempty"`
	Roster    *RosterUpdate `json:"roster,omitempty"`
	Auth      string        `json:"auth,omitempty"`
	Items     []GameSummary `json:"items,omitempty"`
	User      *User         `json:"user,omitempty"`
}

func ErrorMessage(responseID, code string) ServerMessage {
	return ServerMessage{Type: TypeError, ResponseID: responseID, Error: code}
}

func SuccessMessage(responseID string) ServerMessage {
	return ServerMessage{Type: TypeSuccess, ResponseID: responseID, Success: true}
}
