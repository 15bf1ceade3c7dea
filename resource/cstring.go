package resource

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/wippyai/ridgen/errors"
)

// LeakCString copies s into a NUL-terminated buffer owned by the host
// until ReclaimCString or FreeCString. Strings with an interior NUL have
// no C form.
func (l *Ledger) LeakCString(s string) (Handle, error) {
	if i := strings.IndexByte(s, 0); i >= 0 {
		return 0, errors.New(errors.PhaseRuntime, errors.KindInvalidInput).
			Path(KindCString.String()).
			Value(i).
			Detail("string contains an interior nul byte at %d", i).
			Build()
	}
	buf := make([]byte, len(s)+1)
	copy(buf, s)
	return l.Leak(KindCString, buf)
}

// LeakCBytes hands over a raw buffer as written by the host, terminated at
// its first NUL. Its contents are validated when reclaimed.
func (l *Ledger) LeakCBytes(b []byte) (Handle, error) {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	buf := make([]byte, len(b)+1)
	copy(buf, b)
	return l.Leak(KindCString, buf)
}

// ReclaimCString takes the buffer back and decodes it. Invalid UTF-8 is a
// fatal condition on the native side; here it is returned as an error and
// the buffer is still freed.
func (l *Ledger) ReclaimCString(h Handle) (string, error) {
	v, err := l.Reclaim(h, KindCString)
	if err != nil {
		return "", err
	}
	buf := v.([]byte)
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	if !utf8.Valid(buf) {
		return "", errors.InvalidUTF8(errors.PhaseRuntime, []string{KindCString.String()}, buf)
	}
	return string(buf), nil
}

// FreeCString releases the buffer without decoding it, like
// rid_cstring_free.
func (l *Ledger) FreeCString(h Handle) error {
	_, err := l.Reclaim(h, KindCString)
	return err
}
