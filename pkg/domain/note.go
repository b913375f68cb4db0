package domain

import "github.com/google/uuid"

// DefaultNoteText is used when a note is created without text.
const DefaultNoteText = "New Note"

// Note is a free-floating text annotation on a workspace.
type Note struct {
	ID   uuid.UUID
	Text string
	X, Y float64
}
