package core

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func ids(ps []Participant) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}

func TestRegistryJoinCreatesRoomAndLeavePrunesIt(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()

	reg.Join("r1", &Participant{ID: "a", DisplayName: "Alice"})
	reg.Join("r1", &Participant{ID: "b", DisplayName: "Bob"})
	req.Equal([]string{"a", "b"}, ids(reg.ListParticipants("r1")))
	req.Equal(1, reg.RoomCount())

	reg.Leave("r1", "a")
	req.Equal([]string{"b"}, ids(reg.ListParticipants("r1")))

	reg.Leave("r1", "b")
	req.Empty(reg.ListParticipants("r1"))
	req.Zero(reg.RoomCount())
	req.Empty(reg.Rooms())
}

func TestRegistryLeaveUnknownIsNoop(t *testing.T) {
	reg := NewRegistry()
	reg.Leave("ghost", "nobody")

	reg.Join("r1", &Participant{ID: "a"})
	reg.Leave("r1", "nobody")

	require.Equal(t, []string{"a"}, ids(reg.ListParticipants("r1")))
}

func TestRegistryDuplicateJoinReplaces(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()

	first := newTestSession("r1", "a", "Alice")
	second := newTestSession("r1", "a", "Alice again")

	req.Nil(reg.Join("r1", participantFromSession(first)))
	prev := reg.Join("r1", participantFromSession(second))
	req.NotNil(prev)
	req.Same(first, prev.Session)

	list := reg.ListParticipants("r1")
	req.Len(list, 1)
	req.Same(second, list[0].Session)
	req.Equal("Alice again", list[0].DisplayName)
}

func TestRegistryLeaveSessionIgnoresStaleSession(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()

	stale := newTestSession("r1", "a", "Alice")
	fresh := newTestSession("r1", "a", "Alice")
	reg.Join("r1", participantFromSession(stale))
	reg.Join("r1", participantFromSession(fresh))

	req.False(reg.LeaveSession("r1", "a", stale))
	p, ok := reg.Member("r1", "a")
	req.True(ok)
	req.Same(fresh, p.Session)

	req.True(reg.LeaveSession("r1", "a", fresh))
	req.Zero(reg.RoomCount())
}

func TestRegistryRoomsAreIsolated(t *testing.T) {
	reg := NewRegistry()
	reg.Join("r1", &Participant{ID: "a"})
	reg.Join("r2", &Participant{ID: "a"})

	reg.Leave("r1", "a")

	require.Equal(t, []string{"r2"}, reg.Rooms())
	require.Equal(t, []string{"a"}, ids(reg.ListParticipants("r2")))
}

// Random join/leave sequences must match a simple set model.
func TestRegistryMatchesSetModel(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	rooms := []string{"r1", "r2", "r3"}

	for iter := 0; iter < 50; iter++ {
		reg := NewRegistry()
		model := map[string]map[string]string{}

		for step := 0; step < 200; step++ {
			room := rooms[rng.Intn(len(rooms))]
			id := fmt.Sprintf("p%d", rng.Intn(6))
			if rng.Intn(3) == 0 {
				reg.Leave(room, id)
				delete(model[room], id)
				if len(model[room]) == 0 {
					delete(model, room)
				}
				continue
			}
			name := fmt.Sprintf("n%d", step)
			reg.Join(room, &Participant{ID: id, DisplayName: name})
			if model[room] == nil {
				model[room] = map[string]string{}
			}
			model[room][id] = name
		}

		require.Equal(t, len(model), reg.RoomCount())
		for _, room := range rooms {
			want := make([]string, 0, len(model[room]))
			for id := range model[room] {
				want = append(want, id)
			}
			sort.Strings(want)

			got := reg.ListParticipants(room)
			require.Equal(t, want, ids(got))
			for _, p := range got {
				require.Equal(t, model[room][p.ID], p.DisplayName)
			}
		}
	}
}
