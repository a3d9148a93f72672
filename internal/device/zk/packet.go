// Package zk speaks the TCP variant of the ZKTeco terminal protocol: enough
// of it to open a session, read the enrolled users and read the attendance log.
package zk

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/bhaskarRao-22/attendance-sync/internal/device"
)

// Command codes.
const (
	cmdConnect     uint16 = 1000
	cmdExit        uint16 = 1001
	cmdPrepareData uint16 = 1500
	cmdData        uint16 = 1501
	cmdFreeData    uint16 = 1502
	cmdDataWRRQ    uint16 = 1503
	cmdReadBuffer  uint16 = 1504
	cmdAckOK       uint16 = 2000
	cmdAckError    uint16 = 2001
	cmdAckData     uint16 = 2002
	cmdAckUnauth   uint16 = 2005

	cmdUserTempRRQ uint16 = 9
	cmdAttLogRRQ   uint16 = 13
	fctUser        uint32 = 5
)

const (
	tcpPrefix1   uint16 = 0x5050
	tcpPrefix2   uint16 = 0x7d82
	tcpHeaderLen        = 8
	headerLen           = 8
	ushrtMax            = 65535
	// maxPacketLen rejects frames no terminal would send.
	maxPacketLen = 1 << 20
)

// packet is one command frame without the TCP prefix.
type packet struct {
	Command   uint16
	Checksum  uint16
	SessionID uint16
	ReplyID   uint16
	Data      []byte
}

// checksum folds buf into the terminal's 16-bit checksum.
func checksum(buf []byte) uint16 {
	var sum uint32
	for i := 0; i < len(buf); i += 2 {
		if i == len(buf)-1 {
			sum += uint32(buf[i])
		} else {
			sum += uint32(binary.LittleEndian.Uint16(buf[i:]))
		}
		sum %= ushrtMax
	}
	return uint16(ushrtMax - sum - 1)
}

// encodePacket builds a TCP frame for the command, filling in the checksum.
func encodePacket(command, sessionID, replyID uint16, data []byte) []byte {
	body := make([]byte, headerLen+len(data))
	binary.LittleEndian.PutUint16(body[0:], command)
	binary.LittleEndian.PutUint16(body[4:], sessionID)
	binary.LittleEndian.PutUint16(body[6:], replyID)
	copy(body[headerLen:], data)
	binary.LittleEndian.PutUint16(body[2:], checksum(body))

	frame := make([]byte, tcpHeaderLen+len(body))
	binary.LittleEndian.PutUint16(frame[0:], tcpPrefix1)
	binary.LittleEndian.PutUint16(frame[2:], tcpPrefix2)
	binary.LittleEndian.PutUint32(frame[4:], uint32(len(body)))
	copy(frame[tcpHeaderLen:], body)
	return frame
}

// readPacket reads one TCP frame from r.
func readPacket(r io.Reader) (packet, error) {
	var prefix [tcpHeaderLen]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return packet{}, err
	}
	if binary.LittleEndian.Uint16(prefix[0:]) != tcpPrefix1 || binary.LittleEndian.Uint16(prefix[2:]) != tcpPrefix2 {
		return packet{}, fmt.Errorf("%w: bad frame prefix % x", device.ErrProtocol, prefix[:4])
	}
	size := binary.LittleEndian.Uint32(prefix[4:])
	if size < headerLen || size > maxPacketLen {
		return packet{}, fmt.Errorf("%w: bad frame length %d", device.ErrProtocol, size)
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return packet{}, err
	}
	return packet{
		Command:   binary.LittleEndian.Uint16(body[0:]),
		Checksum:  binary.LittleEndian.Uint16(body[2:]),
		SessionID: binary.LittleEndian.Uint16(body[4:]),
		ReplyID:   binary.LittleEndian.Uint16(body[6:]),
		Data:      body[headerLen:],
	}, nil
}

// bufferRequest is the CMD_DATA_WRRQ payload asking the terminal to stage a table.
func bufferRequest(command uint16, fct uint32) []byte {
	buf := make([]byte, 11)
	buf[0] = 1
	binary.LittleEndian.PutUint16(buf[1:], command)
	binary.LittleEndian.PutUint32(buf[3:], fct)
	return buf
}

// chunkRequest is the CMD_READ_BUFFER payload for one slice of a staged table.
func chunkRequest(start, size int) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:], uint32(start))
	binary.LittleEndian.PutUint32(buf[4:], uint32(size))
	return buf
}
