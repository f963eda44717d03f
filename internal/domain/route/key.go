package route

import (
	"crypto/md5"
	"encoding/hex"
	"math"
	"strconv"
	"strings"
)

// keyPrecision is the number of decimals kept before hashing (~1 m).
const keyPrecision = 5

// Key identifies a cached route: the hex MD5 of the rounded pair.
type Key string

func (k Key) String() string { return string(k) }

// DeriveKey returns the cache key for p. Pairs that agree to 5 decimals
// share a key.
func DeriveKey(p Pair) Key {
	sum := md5.Sum([]byte(CanonicalString(p)))
	return Key(hex.EncodeToString(sum[:]))
}

// CanonicalString renders p as "lon1,lat1-lon2,lat2" with every coordinate
// rounded to 5 decimals.
func CanonicalString(p Pair) string {
	var b strings.Builder
	b.WriteString(formatCoordinate(p.OriginLon))
	b.WriteByte(',')
	b.WriteString(formatCoordinate(p.OriginLat))
	b.WriteByte('-')
	b.WriteString(formatCoordinate(p.DestLon))
	b.WriteByte(',')
	b.WriteString(formatCoordinate(p.DestLat))
	return b.String()
}

// RoundCoordinate rounds v to 5 decimal places.
func RoundCoordinate(v float64) float64 {
	return roundTo(v, keyPrecision)
}

// formatCoordinate prints the shortest decimal that round-trips, keeping a
// trailing ".0" on integral values and switching to exponent form below 1e-4
// (e.g. "3e-05"), so keys stay stable against rows already stored.
func formatCoordinate(v float64) string {
	r := RoundCoordinate(v)
	if r != 0 && math.Abs(r) < 1e-4 {
		return strconv.FormatFloat(r, 'e', -1, 64)
	}
	s := strconv.FormatFloat(r, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}

// roundTo rounds the exact binary value of v to the nearest decimal with the
// given places, ties to even.
func roundTo(v float64, decimals int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', decimals, 64), 64)
	if err != nil {
		return v
	}
	return r
}
