package feedback

// Record captures one draft outcome submitted by the client. Records are
// immutable once appended to the log and are never deleted by this system.
type Record struct {
	ID       string `json:"id,omitempty"`
	TS       string `json:"ts,omitempty"`
	Contact  string `json:"contact,omitempty"`
	Incoming string `json:"incoming,omitempty"`
	Draft    string `json:"draft,omitempty"`
	Final    string `json:"final,omitempty"`
	Accepted bool   `json:"accepted"`
	Edited   bool   `json:"edited"`
}
