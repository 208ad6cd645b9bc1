package router

import (
	"math/rand/v2"
	"strconv"
	"sync/atomic"
	"time"
)

var ridSeq uint64

// newReqID returns a short request id: base36 timestamp, sequence and two
// random characters.
func newReqID() string {
	const alpha = "abcdefghijklmnopqrstuvwxyz0123456789"
	n := atomic.AddUint64(&ridSeq, 1)
	suffix := []byte{alpha[rand.IntN(len(alpha))], alpha[rand.IntN(len(alpha))]}
	return strconv.FormatInt(time.Now().UnixNano(), 36) + "-" + strconv.FormatUint(n, 36) + string(suffix)
}
