package go_chat_relay

import (
    "github.com/google/uuid"
    "github.com/stretchr/testify/require"
    "strings"
    "testing"
    "time"
)

// mockRecipient capture every notification delivered by the coordinator,
// so tests may assert on the observable behavior alone.
type mockRecipient struct {
    got chan *Notification
}

// Deliver the notification to the test's queue.
func (m *mockRecipient) Deliver(n *Notification) {
    select {
    case m.got <- n:
    default:
    }
}

// next wait for the next delivered notification, failing the test if
// nothing arrives in a timely manner.
func (m *mockRecipient) next(t *testing.T) *Notification {
    t.Helper()

    select {
    case n := <-m.got:
        return n
    case <-time.After(time.Second):
        require.FailNow(t, "No notification was delivered")
    }
    return nil
}

// silent check that nothing gets delivered for a short while.
func (m *mockRecipient) silent(t *testing.T) {
    t.Helper()

    select {
    case n := <-m.got:
        require.FailNowf(t, "Unexpected notification", "got: %+v", n)
    case <-time.After(50 * time.Millisecond):
    }
}

func newMockRecipient() *mockRecipient {
    return &mockRecipient {
        got: make(chan *Notification, 100),
    }
}

// connect a new mock recipient to the coordinator, draining the two
// notifications every fresh session receives (the join notice broadcast
// to the default room and its own identity snapshot).
func connect(t *testing.T, c Coordinator) (uuid.UUID, *mockRecipient) {
    t.Helper()

    r := newMockRecipient()
    id, err := c.Connect(r)
    require.NoError(t, err)

    notice := r.next(t)
    require.Equal(t, SenderSystem, notice.SenderType)
    require.Contains(t, notice.Message, id.String())

    snap := r.next(t)
    require.NotNil(t, snap.SetInfo)
    require.Equal(t, [2]string { id.String(), "main" }, *snap.SetInfo)

    return id, r
}

func TestConnectAssignsUniqueIDs(t *testing.T) {
    c := newCoordinator(GetDefaultServerConf())
    defer c.Close()

    seen := make(map[uuid.UUID]struct{})
    for i := 0; i < 32; i++ {
        r := newMockRecipient()
        id, err := c.Connect(r)
        require.NoError(t, err)

        _, dup := seen[id]
        require.False(t, dup, "Session id assigned twice")
        seen[id] = struct{}{}
    }
}

func TestConnectClosedCoordinator(t *testing.T) {
    c := newCoordinator(GetDefaultServerConf())
    c.Close()

    _, err := c.Connect(newMockRecipient())
    require.ErrorIs(t, err, CoordinatorClosed)
}

// TestChatScenario walk through a full two-client exchange: chatting in
// the default room, moving to another room, a rejected rename and the
// cleanup of an emptied room.
func TestChatScenario(t *testing.T) {
    c := newCoordinator(GetDefaultServerConf())
    defer c.Close()

    aid, ra := connect(t, c)

    bid, rb := connect(t, c)
    notice := ra.next(t)
    require.Contains(t, notice.Message, bid.String())

    // A talks, both A and B receive the relayed message.
    c.ClientMessage(aid, "hi")
    for _, r := range []*mockRecipient { ra, rb } {
        n := r.next(t)
        require.Equal(t, "hi", n.Message)
        require.Equal(t, SenderUser, n.SenderType)
        require.Equal(t, aid.String(), n.SenderName)
    }

    // B moves to lobby: first its own snapshot of the new room, then
    // the arrival notice. A only sees the departure.
    c.Join(bid, "lobby")
    snap := rb.next(t)
    require.NotNil(t, snap.SetInfo)
    require.Equal(t, [2]string { bid.String(), "lobby" }, *snap.SetInfo)

    n := ra.next(t)
    require.Equal(t, SenderSystem, n.SenderType)
    require.Contains(t, n.Message, "leaved the room main")

    n = rb.next(t)
    require.Contains(t, n.Message, "joined the room lobby")

    // A talks again, but B is no longer a member of main.
    c.ClientMessage(aid, "hi")
    n = ra.next(t)
    require.Equal(t, "hi", n.Message)
    rb.silent(t)

    // B renames to A's current display name and gets rejected.
    c.Rename(bid, aid.String())
    n = rb.next(t)
    require.Equal(t, "[Error changing name. Name " + aid.String() + " already exists]", n.Message)
    require.Equal(t, SenderSystem, n.SenderType)

    c.GetInfo(bid)
    snap = rb.next(t)
    require.Equal(t, [2]string { bid.String(), "lobby" }, *snap.SetInfo)

    // A leaves: main empties out and stops existing.
    c.Disconnect(aid)
    c.ListRooms(bid)
    n = rb.next(t)
    require.Equal(t, []string { "lobby" }, strings.Fields(n.Message))
}

func TestRenameRejectsInvalidCharacters(t *testing.T) {
    c := newCoordinator(GetDefaultServerConf())
    defer c.Close()

    id, r := connect(t, c)

    for _, name := range []string { "two words", "don't", "say\"hi\"" } {
        c.Rename(id, name)

        n := r.next(t)
        require.Equal(t, "[Error \"" + name + "\" contains invalid character]", n.Message)
        require.Equal(t, SenderSystem, n.SenderType)
        r.silent(t)

        c.GetInfo(id)
        snap := r.next(t)
        require.Equal(t, id.String(), snap.SetInfo[0], "Name changed by a rejected rename")
    }
}

// TestRenameRejectsSelfCollision check that the uniqueness scan doesn't
// exclude the caller: re-submitting one's own current name is rejected
// just like any other collision.
func TestRenameRejectsSelfCollision(t *testing.T) {
    c := newCoordinator(GetDefaultServerConf())
    defer c.Close()

    id, r := connect(t, c)

    c.Rename(id, id.String())
    n := r.next(t)
    require.Equal(t, "[Error changing name. Name " + id.String() + " already exists]", n.Message)
}

func TestRenameAppliesAndBroadcasts(t *testing.T) {
    c := newCoordinator(GetDefaultServerConf())
    defer c.Close()

    aid, ra := connect(t, c)
    _, rb := connect(t, c)
    ra.next(t)

    c.Rename(aid, "alice")

    snap := ra.next(t)
    require.NotNil(t, snap.SetInfo)
    require.Equal(t, [2]string { "alice", "main" }, *snap.SetInfo)

    // The success notice is broadcast as a user message, already tagged
    // with the new name, and the renamer is a room member too.
    for _, r := range []*mockRecipient { ra, rb } {
        n := r.next(t)
        require.Equal(t, "[Successfully changed name from " + aid.String() + " -> alice]", n.Message)
        require.Equal(t, SenderUser, n.SenderType)
        require.Equal(t, "alice", n.SenderName)
    }
}

func TestListRoomsExcludesEmptyRooms(t *testing.T) {
    c := newCoordinator(GetDefaultServerConf())
    defer c.Close()

    aid, ra := connect(t, c)
    bid, rb := connect(t, c)
    ra.next(t)

    c.Join(bid, "lobby")
    rb.next(t)
    ra.next(t)
    rb.next(t)

    c.ListRooms(aid)
    n := ra.next(t)
    require.ElementsMatch(t, []string { "main", "lobby" }, strings.Fields(n.Message))

    c.Disconnect(bid)
    c.ListRooms(aid)
    n = ra.next(t)
    require.Equal(t, []string { "main" }, strings.Fields(n.Message))
}

func TestDisconnectCleansUp(t *testing.T) {
    c := newCoordinator(GetDefaultServerConf())
    defer c.Close()

    aid, ra := connect(t, c)
    bid, rb := connect(t, c)
    ra.next(t)

    c.Disconnect(bid)
    n := ra.next(t)
    require.Equal(t, "[user " + bid.String() + " disconnected]", n.Message)

    // Disconnecting is idempotent, so reporting it again does nothing.
    c.Disconnect(bid)
    ra.silent(t)

    // And the removed session can't be addressed anymore.
    c.GetInfo(bid)
    rb.silent(t)
    c.ClientMessage(bid, "hi")
    ra.silent(t)

    // The coordinator itself is still fine, though.
    c.GetInfo(aid)
    ra.next(t)
}

func TestErrorNotification(t *testing.T) {
    c := newCoordinator(GetDefaultServerConf())
    defer c.Close()

    id, r := connect(t, c)

    c.Error(id, "Unknown Command", "/frobnicate")
    n := r.next(t)
    require.Equal(t, "[Unknown Command /frobnicate]", n.Message)
    require.Equal(t, SenderError, n.SenderType)
    require.Equal(t, SenderSystem, n.SenderName)
}

func TestUnknownIdsAreIgnored(t *testing.T) {
    c := newCoordinator(GetDefaultServerConf())
    defer c.Close()

    aid, ra := connect(t, c)

    ghost := uuid.New()
    c.Disconnect(ghost)
    c.Join(ghost, "lobby")
    c.ClientMessage(ghost, "boo")
    c.ListRooms(ghost)
    c.Rename(ghost, "casper")
    c.Error(ghost, "Unknown Command", "/boo")
    c.GetInfo(ghost)

    ra.silent(t)

    c.GetInfo(aid)
    ra.next(t)
}
