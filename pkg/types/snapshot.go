package types

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// StageCard is one entry of a session's stage deck as shown to players.
type StageCard struct {
	StageName     string   `json:"stageName"`
	Term          string   `json:"term"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correctOption"`
}

type UserPosition struct {
	Name     string   `json:"name"`
	Position Position `json:"position"`
}

// RoomSnapshot is broadcast to every member of a room after each accepted move.
type RoomSnapshot struct {
	ID           string         `json:"id"`
	Session      string         `json:"session"`
	CurrentStage int            `json:"currentStage"`
	Users        []UserPosition `json:"users"`
}

// WinEvent goes to the game master and every session member once a room
// clears its last stage.
type WinEvent struct {
	Room  string   `json:"room"`
	Users []string `json:"users"`
}

type TeamsEvent struct {
	Teams [][]string `json:"teams"`
}

type SessionInfo struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// RosterUpdate is pushed to the game master whenever a player joins.
type RosterUpdate struct {
	Code  string   `json:"code"`
	Name  string   `json:"name"`
	Users []string `json:"users"`
}

type GameSummary struct {
	ID                  string      `json:"id"`
	Name                string      `json:"name"`
	Stages              []string    `json:"stages"`
	Dict                [][2]string `json:"dict"`
	TermLanguage        string      `json:"termLanguage,omitempty"`
	TranslationLanguage string      `json:"translationLanguage,omitempty"`
}

type User struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"pfp,omitempty"`
}
