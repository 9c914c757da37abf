package common

import "fmt"

// ShortenAddress keeps the first and last length characters of an address
func ShortenAddress(s string, length int) string {
	if len(s) <= length*2 {
		return s
	}

	return fmt.Sprintf("%s...%s", s[:length], s[len(s)-length:])
}
