package network

const (
	// helloRecord is the single record carried by a hello transfer.
	helloRecord = "hello"

	// edgeWeight is the weight of every edge discovered by hello.
	edgeWeight = 1

	// coordinateRange bounds the coordinates of random topologies.
	coordinateRange = 10

	promNamespace = "network_layer"
)
