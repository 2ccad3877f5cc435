package utils

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"time"
)

// GenerateTicketNumber returns a kitchen order ticket number of the form
// KOT-YYYYMMDD-HHMMSS-mmm-RRRR, in UTC.
func GenerateTicketNumber() string {
	return ticketNumber(time.Now().UTC(), rand.Reader)
}

func ticketNumber(now time.Time, src io.Reader) string {
	n, err := rand.Int(src, big.NewInt(10000))
	if err != nil {
		n = big.NewInt(now.UnixNano() % 10000)
	}
	millis := now.Nanosecond() / int(time.Millisecond)
	return fmt.Sprintf("KOT-%s-%03d-%04d", now.Format("20060102-150405"), millis, n.Int64())
}
