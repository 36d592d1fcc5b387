package link

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/google/gopacket"
	gplayers "github.com/google/gopacket/layers"
)

type (
	// Frame is the unit exchanged by the engines in both directions.
	// Data frames flow from the sender to the receiver and carry one
	// record each. Acknowledgments flow back with an empty payload and
	// a sequence number meaning "next expected". Control frames of the
	// connection handshake carry ConnectionSeqNum.
	//
	// Frames are values: a retransmission is a copy of the original
	// frame with a freshly rolled corruption outcome.
	Frame struct {
		SeqNum      int
		Data        []byte
		IsLast      bool
		IsCorrupted bool
	}

	// FrameLayer is the gopacket layer used to serialize a Frame on a
	// physical wire.
	FrameLayer struct {
		gplayers.BaseLayer
		Flags  uint8
		SeqNum int64
	}
)

const (
	flagLast uint8 = 1 << iota
	flagCorrupted
)

// LayerTypeFrame is the gopacket layer type of FrameLayer.
var LayerTypeFrame = gopacket.RegisterLayerType(2168, gopacket.LayerTypeMetadata{
	Name:    "ARQFrame",
	Decoder: gopacket.DecodeFunc(decodeFrameLayer),
})

func newControlFrame() Frame {
	return Frame{SeqNum: ConnectionSeqNum}
}

func newAckFrame(ack int) Frame {
	return Frame{SeqNum: ack}
}

// IsControl tells whether the frame belongs to the connection handshake.
// A corrupted frame is never trusted to be one.
func (f Frame) IsControl() bool {
	return f.SeqNum == ConnectionSeqNum && !f.IsCorrupted
}

func (f Frame) withCorruption(c Corrupter) Frame {
	f.IsCorrupted = c.Corrupt(f)
	return f
}

func (f *FrameLayer) LayerType() gopacket.LayerType {
	return LayerTypeFrame
}

func (f *FrameLayer) CanDecode() gopacket.LayerClass {
	return LayerTypeFrame
}

func (f *FrameLayer) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypePayload
}

func (f *FrameLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < HeaderLength {
		df.SetTruncated()
		return fmt.Errorf("frame has less than %d bytes, cannot be valid", HeaderLength)
	}
	f.Flags = data[0]
	f.SeqNum = int64(binary.BigEndian.Uint64(data[1:HeaderLength]))
	f.BaseLayer = gplayers.BaseLayer{
		Contents: data[:HeaderLength],
		Payload:  data[HeaderLength:],
	}
	return nil
}

func (f *FrameLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	bytes, err := b.PrependBytes(HeaderLength)
	if err != nil {
		return err
	}
	bytes[0] = f.Flags
	binary.BigEndian.PutUint64(bytes[1:], uint64(f.SeqNum))
	return nil
}

func decodeFrameLayer(data []byte, p gopacket.PacketBuilder) error {
	f := &FrameLayer{}
	if err := f.DecodeFromBytes(data, p); err != nil {
		return err
	}
	p.AddLayer(f)
	if len(f.Payload) == 0 { // acks and control frames
		return nil
	}
	return p.NextDecoder(f.NextLayerType())
}

// EncodeFrame serializes a frame followed by its CRC32 checksum.
func EncodeFrame(frame Frame) ([]byte, error) {
	if len(frame.Data) > MTU {
		return nil, ErrPayloadTooLarge
	}

	// serialize frame
	layer := &FrameLayer{SeqNum: int64(frame.SeqNum)}
	if frame.IsLast {
		layer.Flags |= flagLast
	}
	if frame.IsCorrupted {
		layer.Flags |= flagCorrupted
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{}
	if err := gopacket.SerializeLayers(buf, opts, layer, gopacket.Payload(frame.Data)); err != nil {
		return nil, fmt.Errorf("error serializing frame layer: %w", err)
	}

	// serialize crc32 checksum
	crc := crc32.Checksum(buf.Bytes(), crc32.MakeTable(crc32.IEEE))
	b := make([]byte, ChecksumLength)
	binary.LittleEndian.PutUint32(b, crc)
	return append(buf.Bytes(), b...), nil
}

// DecodeFrame deserializes a buffer produced by EncodeFrame. A checksum
// mismatch is not an error: the frame is returned flagged as corrupted,
// so it takes the same discard path as a frame corrupted on purpose.
func DecodeFrame(frameBuf []byte) (Frame, error) {
	// split frame data and crc
	if len(frameBuf) < HeaderLength+ChecksumLength {
		return Frame{}, fmt.Errorf("frame has less than %d bytes, cannot be valid", HeaderLength+ChecksumLength)
	}
	siz := len(frameBuf) - ChecksumLength
	frameData, crcBuf := frameBuf[:siz], frameBuf[siz:]

	// deserialize frame
	pkt := gopacket.NewPacket(frameData, LayerTypeFrame, gopacket.NoCopy)
	layer, ok := pkt.Layer(LayerTypeFrame).(*FrameLayer)
	if !ok {
		if errLayer := pkt.ErrorLayer(); errLayer != nil {
			return Frame{}, fmt.Errorf("error deserializing frame layer: %w", errLayer.Error())
		}
		return Frame{}, fmt.Errorf("error deserializing frame layer")
	}
	frame := Frame{
		SeqNum:      int(layer.SeqNum),
		IsLast:      layer.Flags&flagLast != 0,
		IsCorrupted: layer.Flags&flagCorrupted != 0,
	}
	if len(layer.Payload) > 0 {
		frame.Data = append([]byte(nil), layer.Payload...)
	}

	// validate crc
	crc := crc32.Checksum(frameData, crc32.MakeTable(crc32.IEEE))
	if expectedCrc := binary.LittleEndian.Uint32(crcBuf); crc != expectedCrc {
		frame.IsCorrupted = true
	}

	return frame, nil
}
