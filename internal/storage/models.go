package storage

import "time"

// Turn is one exchange with a contact: the incoming message, the draft we
// produced for it, and the final text the user actually sent (recorded later
// through feedback, so often empty at draft time).
type Turn struct {
	ID        string    `json:"id"`
	Contact   string    `json:"contact"`
	Incoming  string    `json:"incoming,omitempty"`
	Draft     string    `json:"draft,omitempty"`
	Final     string    `json:"final,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
