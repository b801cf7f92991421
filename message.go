package go_chat_relay

import (
    "github.com/google/uuid"
)

// Tag used on notifications relayed from another connected user.
const SenderUser = "user"

// Tag used on notifications generated by the server itself.
const SenderSystem = "system"

// Tag used on error notifications caused by the receiving user.
const SenderError = "error"

// Notification is a single server-to-client payload: a relayed chat
// message, a system notice, an error or an identity/room snapshot.
//
// Every notification is serialized to JSON before being written to the
// remote client, one text frame per notification.
type Notification struct {
    // Message carried by the notification. Empty on snapshots.
    Message string `json:"message"`

    // SenderType is one of `SenderUser`, `SenderSystem` or `SenderError`.
    // Empty on snapshots.
    SenderType string `json:"sender_type"`

    // SenderName is the display name of the user that originated the
    // notification, or the system tag. Empty on snapshots.
    SenderName string `json:"sender_name"`

    // SetInfo is the `[name, room]` pair of the receiving user. It's only
    // set on identity/room snapshots and null otherwise.
    SetInfo *[2]string `json:"set_info"`
}

// newNotification build a notification carrying `msg` from the given
// sender.
func newNotification(msg, senderType, senderName string) *Notification {
    return &Notification {
        Message: msg,
        SenderType: senderType,
        SenderName: senderName,
    }
}

// newSetInfo build an identity/room snapshot of `usr`.
func newSetInfo(usr *User) *Notification {
    return &Notification {
        SetInfo: &[2]string { usr.Name, usr.Room },
    }
}

// User is the identity of a connected session, as tracked by the
// coordinator. Both fields are only ever changed by the coordinator.
type User struct {
    // The user's display name. Starts as the stringified session id.
    Name string

    // The room the user is currently in. Empty while the user isn't in
    // any room.
    Room string
}

// Recipient is the delivery handle of a session, registered with the
// coordinator on connect.
//
// Delivery is best-effort: a `Recipient` must never block the caller and
// must silently drop notifications once its session terminated.
type Recipient interface {
    // Deliver the notification to the remote client.
    Deliver(n *Notification)
}

// request is an operation queued to the coordinator. Requests are
// processed strictly in arrival order, one at a time, which is the only
// synchronization mechanism guarding the coordinator's state.
type request interface{}

// connectReq register a new session. This is the only blocking request:
// the assigned session id is sent back on `reply`.
type connectReq struct {
    // The session's delivery handle.
    handle Recipient

    // reply receives the coordinator-assigned session id.
    reply chan uuid.UUID
}

// disconnectReq remove the session from the registry and from its room.
type disconnectReq struct {
    id uuid.UUID
}

// joinReq move the session to another room.
type joinReq struct {
    id uuid.UUID
    room string
}

// clientMessageReq broadcast a chat message to the sender's room.
type clientMessageReq struct {
    id uuid.UUID
    msg string
}

// listRoomsReq report every currently existing room to the caller.
type listRoomsReq struct {
    id uuid.UUID
}

// renameReq change the session's display name.
type renameReq struct {
    id uuid.UUID
    newName string
}

// errorReq report a protocol error back to the offending caller.
type errorReq struct {
    id uuid.UUID
    kind string
    detail string
}

// getInfoReq report the caller's current name and room back to it.
type getInfoReq struct {
    id uuid.UUID
}
