package core

import (
	"strconv"
	"strings"
	"time"
)

// NowFunc returns the current time in UTC.
var NowFunc = func() time.Time { return time.Now().UTC() } // mockable

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Checksum is a 32-bit rolling hash (h = h*31 + c) over the UTF-16 code units of s.
// It is NOT a cryptographic hash: it only marks values for display-level integrity checks.
func Checksum(s string) int32 {
	var h int32
	for _, r := range s {
		if r >= 0x10000 {
			// surrogate pair
			r -= 0x10000
			h = (h << 5) - h + int32(0xD800+(r>>10))
			h = (h << 5) - h + int32(0xDC00+(r&0x3FF))
			continue
		}
		h = (h << 5) - h + int32(r)
	}
	return h
}

// ChecksumString returns the decimal form of Checksum(s).
func ChecksumString(s string) string {
	return strconv.FormatInt(int64(Checksum(s)), 10)
}

// ChecksumHex returns the upper-case hex form of |Checksum(s)|.
func ChecksumHex(s string) string {
	h := int64(Checksum(s))
	if h < 0 {
		h = -h
	}
	return strings.ToUpper(strconv.FormatInt(h, 16))
}
