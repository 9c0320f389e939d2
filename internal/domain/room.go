// Package domain contains entities without logic, just meta-data.
package domain

// RoomID is the caller-supplied identifier of a collaboration room.
type RoomID string

const MaxRoomIDLen = 64
