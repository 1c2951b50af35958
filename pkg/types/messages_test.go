package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestServerMessage_NestedPayloads(t *testing.T) {
	cases := []struct {
		name string
		msg  ServerMessage
		want string
	}{
		{
			name: "win",
			msg:  ServerMessage{Type: TypeWin, ResponseID: "j1", Win: &WinEvent{Room: "r1", Users: []string{"A", "C"}}},
			want: `{"type":"win","responseId":"j1","win":{"room":"r1","users":["A","C"]}}`,
		},
		{
			name: "session",
			msg:  ServerMessage{Type: TypeSession, ResponseID: "ms", Session: &SessionInfo{Code: "042137", Name: "Animals"}},
			want: `{"type":"session","responseId":"ms","session":{"code":"042137","name":"Animals"}}`,
		},
		{
			name: "roster",
			msg:  ServerMessage{Type: TypeRoster, ResponseID: "ms", Roster: &RosterUpdate{Code: "042137", Name: "Animals", Users: []string{"ana"}}},
			want: `{"type":"roster","responseId":"ms","roster":{"code":"042137","name":"Animals","users":["ana"]}}`,
		},
		{
			name: "error",
			msg:  ErrorMessage("", "nvf"),
			want: `{"type":"error","responseId":"","error":"nvf"}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := json.Marshal(tc.msg)
			require.NoError(t, err)
			require.JSONEq(t, tc.want, string(got))
		})
	}
}
