package observability

const (
	// LinkName is the metric label identifying a link (a channel with its
	// Sender/Receiver pair, or a physical wire).
	LinkName = "link_name"

	// Discipline is the metric label for the ARQ discipline of a link.
	Discipline = "discipline"

	// NodeID is the metric label identifying a node of the simulated network.
	NodeID = "node_id"
)
