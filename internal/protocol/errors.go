package protocol

import "github.com/danmuck/bitpacket/internal/protocol/packet"

// Decode error kinds, matched with errors.Is against Analyze failures.
var (
	ErrFormat          = packet.ErrFormat
	ErrTruncated       = packet.ErrTruncated
	ErrUnknownOperator = packet.ErrUnknownOperator
	ErrFraming         = packet.ErrFraming
	ErrLiteralOverflow = packet.ErrLiteralOverflow
	ErrInputTooLarge   = packet.ErrInputTooLarge
	ErrTooDeep         = packet.ErrTooDeep
)
