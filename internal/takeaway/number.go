package takeaway

import (
	"fmt"
	"regexp"
	"strconv"
)

var numberDigits = regexp.MustCompile(`^T(\d+)$`)

// nextNumber returns the ticket number following last. Anything that is not
// a T-number restarts the sequence at T001.
func nextNumber(last string) string {
	m := numberDigits.FindStringSubmatch(last)
	if m == nil {
		return "T001"
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return "T001"
	}
	return fmt.Sprintf("T%03d", n+1)
}
