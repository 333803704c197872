package http

import (
	stdhttp "net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/whiteboard-server/internal/core"
)

type roomEnvelope struct {
	Room RoomResponse `json:"room"`
}

func createRoom(t *testing.T, env *testEnv, token, name string, public bool) RoomResponse {
	t.Helper()

	rec := doJSON(t, env, stdhttp.MethodPost, "/api/rooms", token, CreateRoomRequest{Name: name, IsPublic: public})
	require.Equal(t, stdhttp.StatusCreated, rec.Code, rec.Body.String())
	return decode[roomEnvelope](t, rec).Room
}

func TestCreateRoom(t *testing.T) {
	env := newTestEnv(t, nil)
	token := registerUser(t, env, "Alice", "alice@example.com")

	room := createRoom(t, env, token, "Sketches", false)
	require.Len(t, room.RoomID, 8)
	require.True(t, room.IsOwner)
	require.False(t, room.IsPublic)

	rec := doJSON(t, env, stdhttp.MethodPost, "/api/rooms", token, CreateRoomRequest{Name: ""})
	require.Equal(t, stdhttp.StatusBadRequest, rec.Code)

	rec = doJSON(t, env, stdhttp.MethodPost, "/api/rooms", "", CreateRoomRequest{Name: "x"})
	require.Equal(t, stdhttp.StatusUnauthorized, rec.Code)
}

func TestRoomAccessControl(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := registerUser(t, env, "Alice", "alice@example.com")
	bob := registerUser(t, env, "Bob", "bob@example.com")

	private := createRoom(t, env, alice, "Private", false)
	public := createRoom(t, env, alice, "Public", true)

	rec := doJSON(t, env, stdhttp.MethodGet, "/api/rooms/"+private.RoomID, bob, nil)
	require.Equal(t, stdhttp.StatusForbidden, rec.Code)

	rec = doJSON(t, env, stdhttp.MethodGet, "/api/rooms/"+public.RoomID, bob, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	got := decode[roomEnvelope](t, rec).Room
	require.False(t, got.IsOwner)
	require.NotNil(t, got.Owner)
	require.Equal(t, "Alice", got.Owner.Name)
	require.NotNil(t, got.CanvasData)

	rec = doJSON(t, env, stdhttp.MethodGet, "/api/rooms/nope1234", bob, nil)
	require.Equal(t, stdhttp.StatusNotFound, rec.Code)

	// Public rooms are readable, not writable.
	rec = doJSON(t, env, stdhttp.MethodPut, "/api/rooms/"+public.RoomID+"/canvas", bob, SaveCanvasRequest{CanvasData: "x"})
	require.Equal(t, stdhttp.StatusForbidden, rec.Code)

	name := "Renamed"
	rec = doJSON(t, env, stdhttp.MethodPut, "/api/rooms/"+public.RoomID, bob, UpdateRoomRequest{Name: &name})
	require.Equal(t, stdhttp.StatusForbidden, rec.Code)

	rec = doJSON(t, env, stdhttp.MethodPut, "/api/rooms/"+public.RoomID, alice, UpdateRoomRequest{Name: &name})
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	require.Equal(t, "Renamed", decode[roomEnvelope](t, rec).Room.Name)

	rec = doJSON(t, env, stdhttp.MethodDelete, "/api/rooms/"+public.RoomID, bob, nil)
	require.Equal(t, stdhttp.StatusForbidden, rec.Code)
}

func TestCollaborators(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := registerUser(t, env, "Alice", "alice@example.com")
	bob := registerUser(t, env, "Bob", "bob@example.com")

	room := createRoom(t, env, alice, "Shared", false)
	path := "/api/rooms/" + room.RoomID

	rec := doJSON(t, env, stdhttp.MethodPost, path+"/collaborators", bob, AddCollaboratorRequest{Email: "bob@example.com"})
	require.Equal(t, stdhttp.StatusForbidden, rec.Code)

	rec = doJSON(t, env, stdhttp.MethodPost, path+"/collaborators", alice, AddCollaboratorRequest{Email: "ghost@example.com"})
	require.Equal(t, stdhttp.StatusNotFound, rec.Code)

	rec = doJSON(t, env, stdhttp.MethodPost, path+"/collaborators", alice, AddCollaboratorRequest{Email: "bob@example.com"})
	require.Equal(t, stdhttp.StatusOK, rec.Code)

	rec = doJSON(t, env, stdhttp.MethodPost, path+"/collaborators", alice, AddCollaboratorRequest{Email: "bob@example.com"})
	require.Equal(t, stdhttp.StatusBadRequest, rec.Code)

	rec = doJSON(t, env, stdhttp.MethodPut, path+"/canvas", bob, SaveCanvasRequest{CanvasData: "data:image/png;base64,BBBB"})
	require.Equal(t, stdhttp.StatusOK, rec.Code)

	rec = doJSON(t, env, stdhttp.MethodGet, path, bob, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	got := decode[roomEnvelope](t, rec).Room
	require.Equal(t, "data:image/png;base64,BBBB", *got.CanvasData)

	rec = doJSON(t, env, stdhttp.MethodGet, "/api/rooms", bob, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	list := decode[struct {
		Rooms []RoomResponse `json:"rooms"`
	}](t, rec)
	require.Len(t, list.Rooms, 1)
	require.False(t, list.Rooms[0].IsOwner)
}

func TestDeleteRoom(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := registerUser(t, env, "Alice", "alice@example.com")
	room := createRoom(t, env, alice, "Temp", false)

	rec := doJSON(t, env, stdhttp.MethodDelete, "/api/rooms/"+room.RoomID, alice, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)

	rec = doJSON(t, env, stdhttp.MethodGet, "/api/rooms/"+room.RoomID, alice, nil)
	require.Equal(t, stdhttp.StatusNotFound, rec.Code)
}

func TestRoomParticipants(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := registerUser(t, env, "Alice", "alice@example.com")
	room := createRoom(t, env, alice, "Live", true)

	rec := doJSON(t, env, stdhttp.MethodGet, "/api/rooms/"+room.RoomID+"/participants", alice, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	require.JSONEq(t, `{"participants":[]}`, rec.Body.String())

	session := core.NewSession(core.Handshake{Room: room.RoomID, ParticipantID: "p1", DisplayName: "Painter"}, 4)
	require.NoError(t, env.hub.Connect(session))
	require.Eventually(t, func() bool {
		return len(env.hub.Participants(room.RoomID)) == 1
	}, time.Second, 10*time.Millisecond)

	rec = doJSON(t, env, stdhttp.MethodGet, "/api/rooms/"+room.RoomID+"/participants", alice, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	require.JSONEq(t, `{"participants":[{"participantId":"p1","displayName":"Painter"}]}`, rec.Body.String())
}
