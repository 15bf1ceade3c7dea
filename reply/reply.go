package reply

import (
	"math"
	"strings"

	"github.com/wippyai/ridgen/errors"
)

// Layout of a packed reply.
const (
	// IndexBits is the width of the variant index in the low bits.
	IndexBits = 16
	// IndexMask selects the variant index.
	IndexMask = 1<<IndexBits - 1
	// Flag is bit 63; it marks a packed reply as opposed to a bare integer.
	Flag int64 = math.MinInt64
	// MaxID is the largest request id that fits in bits 16..62.
	MaxID uint64 = 1<<(63-IndexBits) - 1
)

// EncodeWithID packs a variant index and a request id.
func EncodeWithID(idx uint16, id uint64) (int64, error) {
	if id > MaxID {
		return 0, errors.Overflow(errors.PhaseRuntime, []string{"reply", "id"}, id, "47-bit request id")
	}
	return Flag | int64(id)<<IndexBits | int64(idx), nil
}

// EncodeWithoutID packs a broadcast reply; its request id decodes as 0.
func EncodeWithoutID(idx uint16) int64 {
	return Flag | int64(idx)
}

// Decode unpacks a reply. ok is false when packed lacks the reply flag, i.e.
// it is a bare integer message.
func Decode(packed int64) (idx uint16, id uint64, ok bool) {
	if packed&Flag == 0 {
		return 0, 0, false
	}
	idx = uint16(packed & IndexMask)
	id = uint64(packed-Flag) >> IndexBits
	return idx, id, true
}

// Posted is one message on the reply channel: a packed integer with an
// optional string payload.
type Posted struct {
	Data    string
	Packed  int64
	HasData bool
}

// Reply is a decoded Posted.
type Reply struct {
	Data    string
	ID      uint64
	Index   uint16
	HasData bool
}

// Correlated reports whether the reply answers a request.
func (r Reply) Correlated() bool {
	return r.ID != 0
}

// Unpack decodes p.
func (p Posted) Unpack() (Reply, error) {
	idx, id, ok := Decode(p.Packed)
	if !ok {
		return Reply{}, errors.InvalidData(errors.PhaseHost, []string{"reply"}, "packed value is missing the reply flag")
	}
	return Reply{Index: idx, ID: id, Data: p.Data, HasData: p.HasData}, nil
}

// LogKind discriminates log frames.
type LogKind string

const (
	LogInfo   LogKind = "log_info"
	LogWarn   LogKind = "log_warn"
	LogDebug  LogKind = "log_debug"
	ErrError  LogKind = "err_error"
	ErrSevere LogKind = "err_severe"
	separator         = "^"
)

// LogKinds lists every frame kind.
var LogKinds = []LogKind{LogInfo, LogWarn, LogDebug, ErrError, ErrSevere}

// IsError reports err_error and err_severe.
func (k LogKind) IsError() bool {
	return k == ErrError || k == ErrSevere
}

// LogFrame is a short log line posted over the reply channel as
// kind^message or kind^message^detail.
type LogFrame struct {
	Kind      LogKind
	Message   string
	Detail    string
	HasDetail bool
}

// String encodes the frame. A caret inside the message would be read back
// as the detail separator, so it is replaced with a space.
func (f LogFrame) String() string {
	var b strings.Builder
	b.WriteString(string(f.Kind))
	b.WriteString(separator)
	b.WriteString(strings.ReplaceAll(f.Message, separator, " "))
	if f.HasDetail {
		b.WriteString(separator)
		b.WriteString(f.Detail)
	}
	return b.String()
}

// ParseLogFrame decodes a frame; ok is false for strings that are not log
// frames.
func ParseLogFrame(s string) (LogFrame, bool) {
	kind, rest, found := strings.Cut(s, separator)
	if !found || !validKind(LogKind(kind)) {
		return LogFrame{}, false
	}
	f := LogFrame{Kind: LogKind(kind)}
	f.Message, f.Detail, f.HasDetail = strings.Cut(rest, separator)
	return f, true
}

func validKind(k LogKind) bool {
	for _, v := range LogKinds {
		if v == k {
			return true
		}
	}
	return false
}
