package go_chat_relay

import (
    "github.com/google/uuid"
    "github.com/samber/lo"
    "io"
    "log"
    "sync/atomic"
)

// entry associate a connected user to its delivery handle.
type entry struct {
    // The user's identity, owned and mutated exclusively by the
    // coordinator's goroutine.
    user *User

    // handle delivers notifications to the user's session.
    handle Recipient
}

// The public interface of the coordinator.
//
// The coordinator is the sole authority over user identity and room
// membership. Every operation is queued to a single goroutine and fully
// applied, including every notification it triggers, before the next
// queued operation starts. Apart from `Connect`, every operation is
// fire-and-forget and does nothing if `id` isn't a registered session.
type Coordinator interface {
    io.Closer

    // Connect register the session behind `handle`, assign it a fresh
    // unique id and join it to the default room. It blocks until the
    // coordinator processed the request and fails with
    // `CoordinatorClosed` if the coordinator was closed.
    Connect(handle Recipient) (uuid.UUID, error)

    // Disconnect remove the session from the registry and from its room.
    //
    // Disconnect is idempotent, so a session's liveness timer may issue
    // it concurrently to the session's own teardown.
    Disconnect(id uuid.UUID)

    // Join move the session to `room`, creating it as needed.
    Join(id uuid.UUID, room string)

    // ClientMessage broadcast `msg` to the session's current room,
    // tagged with the sender's display name.
    ClientMessage(id uuid.UUID, msg string)

    // ListRooms send the caller a listing of every existing room.
    ListRooms(id uuid.UUID)

    // Rename change the session's display name to `newName`, rejecting
    // names with forbidden characters and names already in use.
    Rename(id uuid.UUID, newName string)

    // Error send the caller an error notification built from `kind` and
    // `detail`.
    Error(id uuid.UUID, kind, detail string)

    // GetInfo send the caller a snapshot of its current name and room.
    GetInfo(id uuid.UUID)

    // IsClosed check if the coordinator is closed.
    IsClosed() bool
}

// coordinator implement `Coordinator` on top of a single goroutine that
// owns every piece of state. See `newCoordinator()`.
type coordinator struct {
    // defaultRoom is the room every session joins on connect.
    defaultRoom string

    // rooms map a room name to the set of member sessions. A room that
    // has no members has no rooms entry either, the default room
    // included.
    rooms map[string]map[uuid.UUID]struct{}

    // sessions is the registry of connected sessions. Ids are assigned
    // on connect and never reused within the process.
    sessions map[uuid.UUID]*entry

    // recv requests issued by the sessions, in arrival order.
    recv chan request

    // Whether the coordinator is currently running.
    running uint32

    // stop signals, by getting closed, that the coordinator should stop.
    stop chan struct{}

    // logger used by the coordinator to report events. If this is nil,
    // no message shall be logged!
    logger *log.Logger

    // Whether debug messages should be logged.
    debugLog bool
}

// queue a fire-and-forget request, unless the coordinator was closed.
func (c *coordinator) queue(req request) {
    select {
    case c.recv <- req:
    case <-c.stop:
    }
}

// Connect register the session behind `handle` and return its assigned
// id. See `Coordinator.Connect` for a more complete description.
func (c *coordinator) Connect(handle Recipient) (uuid.UUID, error) {
    req := connectReq {
        handle: handle,
        reply: make(chan uuid.UUID, 1),
    }

    select {
    case c.recv <- req:
    case <-c.stop:
        return uuid.Nil, CoordinatorClosed
    }

    select {
    case id := <-req.reply:
        return id, nil
    case <-c.stop:
        return uuid.Nil, CoordinatorClosed
    }
}

// Disconnect remove the session from the registry and from its room.
func (c *coordinator) Disconnect(id uuid.UUID) {
    c.queue(disconnectReq { id: id })
}

// Join move the session to `room`.
func (c *coordinator) Join(id uuid.UUID, room string) {
    c.queue(joinReq { id: id, room: room })
}

// ClientMessage broadcast `msg` to the session's current room.
func (c *coordinator) ClientMessage(id uuid.UUID, msg string) {
    c.queue(clientMessageReq { id: id, msg: msg })
}

// ListRooms send the caller a listing of every existing room.
func (c *coordinator) ListRooms(id uuid.UUID) {
    c.queue(listRoomsReq { id: id })
}

// Rename change the session's display name to `newName`.
func (c *coordinator) Rename(id uuid.UUID, newName string) {
    c.queue(renameReq { id: id, newName: newName })
}

// Error send the caller an error notification.
func (c *coordinator) Error(id uuid.UUID, kind, detail string) {
    c.queue(errorReq { id: id, kind: kind, detail: detail })
}

// GetInfo send the caller a snapshot of its current name and room.
func (c *coordinator) GetInfo(id uuid.UUID) {
    c.queue(getInfoReq { id: id })
}

// IsClosed check if the coordinator is closed.
//
// The coordinator reports itself as being closed as soon as `c.Close()`
// was first called, regardless of whether its goroutine finished.
func (c *coordinator) IsClosed() bool {
    return atomic.LoadUint32(&c.running) == 0
}

// Close the coordinator and stop its goroutine.
//
// This can safely be called multiple times (and from multiple
// goroutines), as it will only run on the first call.
func (c *coordinator) Close() error {
    if atomic.CompareAndSwapUint32(&c.running, 1, 0) {
        if c.debugLog && c.logger != nil {
            c.logger.Printf("[DEBUG] go-chat-relay/coordinator: Closing...")
        }
        close(c.stop)
    }

    return nil
}

// run the coordinator, handling every queued request in arrival order.
//
// When `newCoordinator()` is called, `c.run()` is executed in a new
// goroutine. `c.Close()` should be called to stop the goroutine and
// clean up its resources.
func (c *coordinator) run() {
    for {
        select {
        case <-c.stop:
            return
        case req := <-c.recv:
            c.handle(req)
        }
    }
}

// handle a single request. This is only ever called from the
// coordinator's own goroutine, so the state may be freely accessed.
func (c *coordinator) handle(req request) {
    switch r := req.(type) {
    case connectReq:
        c.handleConnect(r)
    case disconnectReq:
        c.handleDisconnect(r)
    case joinReq:
        c.handleJoin(r)
    case clientMessageReq:
        c.handleClientMessage(r)
    case listRoomsReq:
        c.handleListRooms(r)
    case renameReq:
        c.handleRename(r)
    case errorReq:
        c.handleError(r)
    case getInfoReq:
        c.handleGetInfo(r)
    default:
        if c.logger != nil {
            c.logger.Printf("[ERROR] go-chat-relay/coordinator: Unknown request: %+v", req)
        }
    }
}

// sendTo build and deliver one notification per member of `room`. It
// does nothing if `room` doesn't exist.
//
// If `sender` is nil the notification is tagged as a system message.
// Otherwise it's tagged as a user message, named after the sender's
// current display name as long as the sender is still registered. Every
// member of the room receives the message, the sender included.
func (c *coordinator) sendTo(room string, sender *uuid.UUID, msg string) {
    members, ok := c.rooms[room]
    if !ok {
        return
    }

    senderType := SenderSystem
    senderName := SenderSystem
    if sender != nil {
        senderType = SenderUser
        if ent, ok := c.sessions[*sender]; ok {
            senderName = ent.user.Name
        }
    }

    if c.debugLog && c.logger != nil {
        c.logger.Printf("[DEBUG] go-chat-relay/coordinator: Broadcasting...\n\troom: \"%s\"\n\tsender: \"%s\"\n\tmessage: \"%s\"",
                room, senderName, msg)
    }

    for id := range members {
        if ent, ok := c.sessions[id]; ok {
            ent.handle.Deliver(newNotification(msg, senderType, senderName))
        }
    }
}

// joinRoom insert the session into the room's member set, creating the
// room as needed, and point the user's room at it.
func (c *coordinator) joinRoom(id uuid.UUID, room string) {
    members, ok := c.rooms[room]
    if !ok {
        members = make(map[uuid.UUID]struct{})
        c.rooms[room] = members
    }
    members[id] = struct{}{}

    if ent, ok := c.sessions[id]; ok {
        ent.user.Room = room
    }
}

// leaveRoom remove the session from the room's member set, clearing the
// user's room. The room itself is deleted once its last member leaves,
// so an empty room never lingers.
func (c *coordinator) leaveRoom(id uuid.UUID, room string) {
    members, ok := c.rooms[room]
    if !ok {
        return
    }

    delete(members, id)
    if ent, ok := c.sessions[id]; ok {
        ent.user.Room = ""
    }
    if len(members) == 0 {
        delete(c.rooms, room)
    }
}

// handleConnect assign a fresh id to the new session, register it, join
// it to the default room and announce it there. The assigned id is
// reported back through the request's `reply` channel, and the session
// also receives a snapshot of its starting identity.
func (c *coordinator) handleConnect(r connectReq) {
    id := uuid.New()

    usr := &User {
        Name: id.String(),
    }
    c.sessions[id] = &entry {
        user: usr,
        handle: r.handle,
    }
    c.joinRoom(id, c.defaultRoom)

    if c.logger != nil {
        c.logger.Printf("[INFO] go-chat-relay/coordinator: New session.\n\tid: \"%s\"", id)
    }

    c.sendTo(c.defaultRoom, nil,
            "[new user " + id.String() + " Joined to " + c.defaultRoom + " room]")
    r.handle.Deliver(newSetInfo(usr))

    r.reply <- id
}

// handleDisconnect remove the session, leave its room and announce the
// departure to the room it was in. Unknown ids are ignored, so a
// disconnect may be reported more than once.
func (c *coordinator) handleDisconnect(r disconnectReq) {
    ent, ok := c.sessions[r.id]
    if !ok {
        return
    }

    name := ent.user.Name
    room := ent.user.Room
    delete(c.sessions, r.id)
    c.leaveRoom(r.id, room)

    if c.logger != nil {
        c.logger.Printf("[INFO] go-chat-relay/coordinator: Session disconnected.\n\tid: \"%s\"\n\tname: \"%s\"",
                r.id, name)
    }

    c.sendTo(room, nil, "[user " + name + " disconnected]")
}

// handleJoin move the session to the requested room.
//
// The caller is sent a snapshot of its new room before the move, then
// the old room is told about the departure and the new room about the
// arrival. Since the session is removed from the old room before that
// room's broadcast, the mover only sees the arrival notice.
func (c *coordinator) handleJoin(r joinReq) {
    ent, ok := c.sessions[r.id]
    if !ok {
        return
    }

    name := ent.user.Name
    oldRoom := ent.user.Room

    ent.handle.Deliver(newSetInfo(&User { Name: name, Room: r.room }))

    c.leaveRoom(r.id, oldRoom)
    c.sendTo(oldRoom, nil, "[User " + name + " leaved the room " + oldRoom + "]")
    c.joinRoom(r.id, r.room)
    c.sendTo(r.room, nil, "[User " + name + " joined the room " + r.room + "]")
}

// handleClientMessage broadcast the chat message to the sender's current
// room, tagged with the sender's display name.
func (c *coordinator) handleClientMessage(r clientMessageReq) {
    ent, ok := c.sessions[r.id]
    if !ok {
        return
    }

    c.sendTo(ent.user.Room, &r.id, r.msg)
}

// handleListRooms send the caller every currently existing room, one
// per line. The order isn't stable, as it follows the map's iteration.
func (c *coordinator) handleListRooms(r listRoomsReq) {
    ent, ok := c.sessions[r.id]
    if !ok {
        return
    }

    body := "\n"
    for _, name := range lo.Keys(c.rooms) {
        body += name + "\n"
    }

    ent.handle.Deliver(newNotification(body, SenderSystem, SenderSystem))
}

// handleRename change the caller's display name.
//
// The new name is rejected if it contains a space, single-quote or
// double-quote, or if any registered user already holds it. The
// uniqueness scan doesn't exclude the caller, so renaming to one's own
// current name is also rejected as a collision.
func (c *coordinator) handleRename(r renameReq) {
    ent, ok := c.sessions[r.id]
    if !ok {
        return
    }

    for _, b := range []byte(r.newName) {
        if b == ' ' || b == '\'' || b == '"' {
            ent.handle.Deliver(newNotification(
                    "[Error \"" + r.newName + "\" contains invalid character]",
                    SenderSystem, SenderSystem))
            return
        }
    }

    for _, other := range c.sessions {
        if other.user.Name == r.newName {
            ent.handle.Deliver(newNotification(
                    "[Error changing name. Name " + r.newName + " already exists]",
                    SenderSystem, SenderSystem))
            return
        }
    }

    oldName := ent.user.Name
    ent.user.Name = r.newName

    if c.debugLog && c.logger != nil {
        c.logger.Printf("[DEBUG] go-chat-relay/coordinator: Renamed.\n\tid: \"%s\"\n\told: \"%s\"\n\tnew: \"%s\"",
                r.id, oldName, r.newName)
    }

    ent.handle.Deliver(newSetInfo(ent.user))
    c.sendTo(ent.user.Room, &r.id,
            "[Successfully changed name from " + oldName + " -> " + r.newName + "]")
}

// handleError send the caller an error notification built from the
// request's kind and detail.
func (c *coordinator) handleError(r errorReq) {
    ent, ok := c.sessions[r.id]
    if !ok {
        return
    }

    ent.handle.Deliver(newNotification("[" + r.kind + " " + r.detail + "]",
            SenderError, SenderSystem))
}

// handleGetInfo send the caller a snapshot of its current name and room.
func (c *coordinator) handleGetInfo(r getInfoReq) {
    ent, ok := c.sessions[r.id]
    if !ok {
        return
    }

    ent.handle.Deliver(newSetInfo(ent.user))
}

// newCoordinator create a new `Coordinator` configured by `conf`.
//
// `newCoordinator()` executes a new goroutine to handle the requests
// queued by the sessions. To stop this goroutine and clean up its
// resources, call `c.Close()`.
func newCoordinator(conf ServerConf) Coordinator {
    c := &coordinator {
        defaultRoom: conf.DefaultRoom,
        rooms: make(map[string]map[uuid.UUID]struct{}),
        sessions: make(map[uuid.UUID]*entry),
        recv: make(chan request, conf.RequestQueueSize),
        running: 1,
        stop: make(chan struct{}),
        logger: conf.Logger,
        debugLog: conf.DebugLog,
    }

    go c.run()

    return c
}
