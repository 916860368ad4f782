package crypto

import (
	"runtime"

	"murmur/internal/domain"
)

// Wipe zeroes the provided buffer. This is best-effort and aims to
// reduce the chance of the compiler eliding the write.
//
//go:noinline
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	// Ensure b is considered live until after the loop.
	runtime.KeepAlive(&b)
}

// WipeKeyPair zeroes the private halves of a key pair in place.
func WipeKeyPair(kp *domain.KeyPair) {
	if kp == nil {
		return
	}
	Wipe(kp.BoxPriv[:])
	Wipe(kp.SignPriv[:])
}
