package game

import (
	"crypto/rand"
	"math/big"
)

// Room codes are short enough to type from a projector screen. The alphabet
// drops 0/O and 1/I, which players confuse when reading aloud.
const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 6
)

// GenerateRoomCode returns a fresh candidate code. Uniqueness against live
// rooms is the caller's job; with 32^6 combinations collisions are rare
// enough that retrying is cheaper than coordinating.
func GenerateRoomCode() string {
	max := big.NewInt(int64(len(codeAlphabet)))
	buf := make([]byte, codeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken.
			panic(err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf)
}
