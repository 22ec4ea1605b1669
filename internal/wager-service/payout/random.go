package payout

import (
	"crypto/rand"
	"encoding/binary"
)

// RandomSource produz valores uniformes em [0,1).
// *math/rand.Rand satisfaz a interface (mas não é seguro para uso concorrente).
type RandomSource interface {
	Float64() float64
}

// CryptoSource lê de crypto/rand; seguro para uso concorrente
type CryptoSource struct{}

// Float64 usa os 53 bits altos de um uint64 aleatório, como math/rand
func (CryptoSource) Float64() float64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("crypto/rand unavailable: " + err.Error())
	}
	return float64(binary.BigEndian.Uint64(b[:])>>11) / (1 << 53)
}
