package physical

import (
	gplayers "github.com/google/gopacket/layers"
)

const (
	// MTU (maximum transmission unit) is the maximum number of bytes that are
	// allowed on the payload of the physical layer. The wire is simulated
	// on top of UDP, and 576 bytes is the practical maximum safe size of an
	// IP datagram after RFCs 791 and 1122. Minus the UDP header that leaves
	// 568 bytes, rounded down to 500.
	MTU = 500

	// captureLinkType is DLT_USER0. Captured wires carry ARQ frames, which
	// have no registered link type.
	captureLinkType = gplayers.LinkType(147)

	channelSize = 1024

	promNamespace = "physical_layer"
)
