package models

// Side indicates which side of the book a trade consumed.
type Side uint8

const (
	BidFill Side = 0 // trade executed at the bid
	AskFill Side = 1 // trade executed at the ask
)

func (s Side) String() string {
	if s == BidFill {
		return "bid"
	}
	return "ask"
}

// TickRecord is one executed trade decoded from a .scid intraday file.
// Timestamps are microseconds since the Sierra Chart epoch (1899-12-30).
type TickRecord struct {
	Timestamp int64
	Price     float64
	Quantity  uint32
	Side      Side
}

// DepthCommand enumerates the order book mutation commands carried by
// .depth records.
type DepthCommand uint8

const (
	CmdNone DepthCommand = iota
	CmdClearBook
	CmdAddBidLevel
	CmdAddAskLevel
	CmdModifyBidLevel
	CmdModifyAskLevel
	CmdDeleteBidLevel
	CmdDeleteAskLevel
)

// Valid reports whether the command is one of the documented values.
func (c DepthCommand) Valid() bool {
	return c >= CmdClearBook && c <= CmdDeleteAskLevel
}

// BidSide reports whether the command targets the bid side. Routing is by
// command parity: even values are bid commands, odd values are ask commands.
// Only meaningful for non-clear commands.
func (c DepthCommand) BidSide() bool {
	return c%2 == 0
}

func (c DepthCommand) String() string {
	switch c {
	case CmdClearBook:
		return "clear_book"
	case CmdAddBidLevel:
		return "add_bid_level"
	case CmdAddAskLevel:
		return "add_ask_level"
	case CmdModifyBidLevel:
		return "modify_bid_level"
	case CmdModifyAskLevel:
		return "modify_ask_level"
	case CmdDeleteBidLevel:
		return "delete_bid_level"
	case CmdDeleteAskLevel:
		return "delete_ask_level"
	}
	return "none"
}

// FlagEndOfBatch marks the last record of a depth update batch. A record
// carrying it closes the snapshot opened by the preceding CmdClearBook.
const FlagEndOfBatch uint8 = 0x01

// DepthRecord is one order book mutation decoded from a .depth file. The
// reserved field of the wire layout is dropped during decode.
type DepthRecord struct {
	Timestamp int64
	Command   DepthCommand
	Flags     uint8
	NumOrders uint32
	Price     float64
	Quantity  uint32
}

// EndOfBatch reports whether the record closes the current update batch.
func (r DepthRecord) EndOfBatch() bool {
	return r.Flags&FlagEndOfBatch != 0
}

// PriceLevel is one aggregated level of a book side.
type PriceLevel struct {
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	NumOrders int     `json:"num_orders"`
}

// Snapshot is the record span of one complete book rebuild, from a
// CmdClearBook record to the first subsequent record flagged end-of-batch.
// Indices are offsets into the decoded depth sequence.
type Snapshot struct {
	StartIndex int
	EndIndex   int
	StartTs    int64
	EndTs      int64
}

// Bar is an immutable OHLCV aggregate over one group of trades. FirstTs and
// LastTs are the timestamps of the first and last trade contributing to it.
type Bar struct {
	Open    float64 `json:"open"`
	High    float64 `json:"high"`
	Low     float64 `json:"low"`
	Close   float64 `json:"close"`
	Volume  int64   `json:"volume"`
	FirstTs int64   `json:"first_ts"`
	LastTs  int64   `json:"last_ts"`
}
