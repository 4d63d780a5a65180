package wire

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefixes for content digests. The version suffix allows the
// encoding to change without colliding with old digests.
const (
	DomainIR     = "gtirb/ir/v1"
	DomainModule = "gtirb/module/v1"
)

// Digest computes SHA256(domain + 0x00 + data) as lower-case hex. data is
// expected to be a deterministic encoding of a message.
func Digest(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
