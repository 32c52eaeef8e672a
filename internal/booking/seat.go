package booking

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// SeatsPerRow is the coach layout width used to derive a seat's position
// from its number.  Buses are laid out 2+2, four seats per row.
const SeatsPerRow = 4

var errBadSeatLabel = errors.New("seat label must be a number between 01 and 99")

// FormatSeatNumber renders a seat index as its two-digit label: 1 -> "01".
func FormatSeatNumber(n int) string {
	return fmt.Sprintf("%02d", n)
}

// ParseSeatNumber parses a seat label such as "07" (or "7") back to its
// index.  Whether the index exists on a given bus is for the caller to
// check against the trip's seat count.
func ParseSeatNumber(label string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(label))
	if err != nil || n < 1 || n > 99 {
		return 0, errBadSeatLabel
	}
	return n, nil
}

// SeatPosition maps a seat index to its 1-based row and column.
func SeatPosition(n int) (row, col int) {
	return (n-1)/SeatsPerRow + 1, (n-1)%SeatsPerRow + 1
}
