// Package mapcodec serializes and deserializes the distribution map: the
// self-describing recovery plan that records, per chunk, which carrier and
// which channels hold it.
//
// Grounded on zanicar-stegano/stegano.go's manual big-endian length-prefixed
// framing (there used only for the single embedded file's length), extended
// per spec section 4.9 to the full nested entry/checksum/filename layout.
package mapcodec

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/pixveil/pixveil"
	"github.com/pixveil/pixveil/internal/bits"
)

// Entry is one placement record in the map.
type Entry struct {
	ChunkID         uint32
	PNGFile         string
	StartChannel    uint32
	EndChannel      uint32
	BitsPerChannel  uint8
	ChannelSequence []bits.Channel
}

// Map is the full recovery plan (spec DistributionMap entity).
type Map struct {
	Entries             []Entry
	OriginalFilename    string
	Checksum            [32]byte
	EncryptedDataLength uint32
	CompressionStrategy pixveil.CompressionStrategy
}

// Serialize encodes m per spec section 4.9's byte layout: magic, u32 content
// size, then entry_count, entries, checksum, filename, enc_data_len,
// compression_strategy.
func Serialize(m Map) []byte {
	var content bytes.Buffer

	writeU32(&content, uint32(len(m.Entries)))
	for _, e := range m.Entries {
		writeEntry(&content, e)
	}
	writeChecksum(&content, m.Checksum)
	writeFilename(&content, m.OriginalFilename)
	writeU32(&content, m.EncryptedDataLength)
	content.WriteByte(byte(m.CompressionStrategy))

	var out bytes.Buffer
	out.Write(pixveil.Magic[:])
	writeU32(&out, uint32(content.Len()))
	out.Write(content.Bytes())
	return out.Bytes()
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeFilename(buf *bytes.Buffer, name string) {
	writeU16(buf, uint16(len(name)))
	buf.WriteString(name)
}

func writeChecksum(buf *bytes.Buffer, sum [32]byte) {
	writeU16(buf, uint16(len(sum)))
	buf.Write(sum[:])
}

func writeEntry(buf *bytes.Buffer, e Entry) {
	writeU32(buf, e.ChunkID)
	writeFilename(buf, e.PNGFile)
	writeU32(buf, e.StartChannel)
	writeU32(buf, e.EndChannel)
	buf.WriteByte(e.BitsPerChannel)
	buf.WriteByte(byte(len(e.ChannelSequence)))
	buf.Write(packChannelSequence(e.ChannelSequence))
}

// packChannelSequence packs each channel code into 2 bits, big-endian within
// byte, zero-padded in the tail byte (spec section 4.9 / 6).
func packChannelSequence(seq []bits.Channel) []byte {
	out := make([]byte, (len(seq)+3)/4)
	for i, c := range seq {
		byteIdx := i / 4
		shift := 6 - 2*(i%4)
		out[byteIdx] |= byte(c) << shift
	}
	return out
}

func unpackChannelSequence(packed []byte, seqLen int) ([]bits.Channel, error) {
	if len(packed) != (seqLen+3)/4 {
		return nil, pixveil.ErrMapMalformed
	}
	seq := make([]bits.Channel, seqLen)
	for i := 0; i < seqLen; i++ {
		byteIdx := i / 4
		shift := 6 - 2*(i%4)
		code := (packed[byteIdx] >> shift) & 0x3
		if code > 2 {
			return nil, pixveil.ErrMapMalformed
		}
		seq[i] = bits.Channel(code)
	}
	return seq, nil
}

// reader tracks a cursor into a content buffer, rejecting any read that
// would cross the declared content end (spec section 4.9: "any field read
// beyond content end").
type reader struct {
	buf []byte
	pos int
}

func (r *reader) need(n int) error {
	if r.pos+n > len(r.buf) {
		return pixveil.ErrMapTruncated
	}
	return nil
}

func (r *reader) readU32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

func (r *reader) readU16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(r.buf[r.pos : r.pos+2])
	r.pos += 2
	return v, nil
}

func (r *reader) readByte() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) readBytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) readString(n int) (string, error) {
	b, err := r.readBytes(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Deserialize is the inverse of Serialize, rejecting a missing/corrupted
// magic, an oversized declared size, any field read beyond content end, and
// any invalid channel-sequence code, per spec section 4.9 / P5.
func Deserialize(data []byte) (Map, error) {
	if len(data) < 4 || !bytes.Equal(data[:4], pixveil.Magic[:]) {
		return Map{}, pixveil.ErrMagicNotFound
	}
	r := &reader{buf: data, pos: 4}

	size, err := r.readU32()
	if err != nil {
		return Map{}, err
	}
	if r.pos+int(size) > len(data) {
		return Map{}, pixveil.ErrMapTruncated
	}
	// Constrain the reader to exactly the declared content window so a
	// trailing garbage tail can't be misread as valid fields.
	r.buf = data[:r.pos+int(size)]

	entryCount, err := r.readU32()
	if err != nil {
		return Map{}, err
	}

	entries := make([]Entry, 0, entryCount)
	for i := uint32(0); i < entryCount; i++ {
		e, err := readEntry(r)
		if err != nil {
			return Map{}, err
		}
		entries = append(entries, e)
	}

	checksum, err := readChecksum(r)
	if err != nil {
		return Map{}, err
	}

	filename, err := readFilename(r)
	if err != nil {
		return Map{}, err
	}

	encLen, err := r.readU32()
	if err != nil {
		return Map{}, err
	}

	strategyByte, err := r.readByte()
	if err != nil {
		return Map{}, err
	}
	strategy := pixveil.CompressionStrategy(strategyByte)

	return Map{
		Entries:             entries,
		OriginalFilename:    filename,
		Checksum:            checksum,
		EncryptedDataLength: encLen,
		CompressionStrategy: strategy,
	}, nil
}

func readFilename(r *reader) (string, error) {
	n, err := r.readU16()
	if err != nil {
		return "", err
	}
	return r.readString(int(n))
}

func readChecksum(r *reader) ([32]byte, error) {
	n, err := r.readU16()
	if err != nil {
		return [32]byte{}, err
	}
	if n != 32 {
		return [32]byte{}, pixveil.ErrMapMalformed
	}
	b, err := r.readBytes(int(n))
	if err != nil {
		return [32]byte{}, err
	}
	var out [32]byte
	copy(out[:], b)
	return out, nil
}

func readEntry(r *reader) (Entry, error) {
	chunkID, err := r.readU32()
	if err != nil {
		return Entry{}, err
	}
	filename, err := readFilename(r)
	if err != nil {
		return Entry{}, err
	}
	start, err := r.readU32()
	if err != nil {
		return Entry{}, err
	}
	end, err := r.readU32()
	if err != nil {
		return Entry{}, err
	}
	bpc, err := r.readByte()
	if err != nil {
		return Entry{}, err
	}
	seqLen, err := r.readByte()
	if err != nil {
		return Entry{}, err
	}
	packed, err := r.readBytes((int(seqLen) + 3) / 4)
	if err != nil {
		return Entry{}, err
	}
	seq, err := unpackChannelSequence(packed, int(seqLen))
	if err != nil {
		return Entry{}, err
	}

	return Entry{
		ChunkID:         chunkID,
		PNGFile:         filename,
		StartChannel:    start,
		EndChannel:      end,
		BitsPerChannel:  bpc,
		ChannelSequence: seq,
	}, nil
}

// String renders a human-readable summary, useful for -v debug dumps.
func (m Map) String() string {
	return fmt.Sprintf("Map{entries=%d file=%q enc_len=%d strategy=%s}",
		len(m.Entries), m.OriginalFilename, m.EncryptedDataLength, m.CompressionStrategy)
}
