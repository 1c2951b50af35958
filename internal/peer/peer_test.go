package peer

import (
	"testing"

	"github.com/DoyleJ11/stage-quiz-backend/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestConn_SendDropsWhenFull(t *testing.T) {
	req := require.New(t)
	c := NewConn("c1", 1)

	req.True(c.Send(types.SuccessMessage("r1")))
	req.False(c.Send(types.SuccessMessage("r2")))

	msg := <-c.Out()
	req.Equal("r1", msg.ResponseID)
}

func TestConn_SendAfterCloseFails(t *testing.T) {
	req := require.New(t)
	c := NewConn("c1", 4)
	c.Close()
	c.Close()

	req.False(c.Send(types.SuccessMessage("r1")))
	req.Empty(c.Out())
}

func TestPeer_PushTagsOwnRequestID(t *testing.T) {
	req := require.New(t)
	c := NewConn("c1", 1)
	p := Peer{Name: "ana", RequestID: "join-7", Conn: c}

	req.True(p.Push(types.ServerMessage{Type: types.TypeStart, ResponseID: "other", Start: true}))
	req.Equal("join-7", (<-c.Out()).ResponseID)

	req.False(Peer{Name: "ghost"}.Push(types.SuccessMessage("x")))
}
