package ui

// Session callbacks arrive on backend goroutines. They are turned into
// messages tagged with the request they belong to, and the model ignores
// messages from any request but the latest.
type (
	progressMsg struct {
		request uint64
		offset  int
	}

	endMsg struct {
		request uint64
	}
)
