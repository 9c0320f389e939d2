package collab

// EventType names a message on the collaboration channel. Inbound and
// outbound events share one envelope: a JSON object with a "type" field and
// the payload fields inlined.
type EventType string

const (
	// Client -> server
	EventJoinSession  EventType = "joinSession"
	EventLeaveSession EventType = "leaveSession"
	EventDrawLine     EventType = "drawLine"
	EventDrawShape    EventType = "drawShape"
	EventUndoAction   EventType = "undoAction"
	EventRedoAction   EventType = "redoAction"
	EventResetCanvas  EventType = "resetCanvas"
	EventUpdateCode   EventType = "updateCode"
	EventUpdateText   EventType = "updateText"
	EventSendMessage  EventType = "sendMessage"
	EventUserTyping   EventType = "userTyping"

	// Server -> client
	EventSessionJoined    EventType = "sessionJoined"
	EventSessionJoinError EventType = "sessionJoinError"
	EventUserJoined       EventType = "userJoined"
	EventUserLeft         EventType = "userLeft"
	EventNewMessage       EventType = "newMessage"
)
