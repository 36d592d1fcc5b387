package link

import (
	"github.com/PozigunMikhail/GoBackNAndSelectiveRepeat/layers/physical"
)

const (
	// ConnectionSeqNum is the reserved sequence number carried only by the
	// control frames of the connection handshake. Data sequence numbers
	// start at zero, so it never collides with a data frame or an ack.
	ConnectionSeqNum = -1

	// HeaderLength is the frame header length on the wire: one byte of
	// flags followed by the 64-bit sequence number.
	HeaderLength = 9

	// ChecksumLength is the frame check sequence (FCS) length (32-bit CRC).
	ChecksumLength = 4

	// MTU (maximum transmission unit) is the maximum number of bytes that are
	// allowed on the payload of a frame when it travels over a physical wire.
	MTU = physical.MTU - HeaderLength - ChecksumLength

	channelSize = 1024

	promNamespace = "link_layer"
)
