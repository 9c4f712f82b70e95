package instagram

import (
	"fmt"
	"math/big"
	"strings"
)

const shortcodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// MediaID converts a post shortcode to the numeric media id used by the API.
// Shortcodes of private posts carry a suffix after the first 11 characters.
func MediaID(shortcode string) (string, error) {
	if shortcode == "" {
		return "", fmt.Errorf("empty shortcode")
	}
	if len(shortcode) > 11 {
		shortcode = shortcode[:11]
	}
	id := new(big.Int)
	base := big.NewInt(64)
	for _, r := range shortcode {
		i := strings.IndexRune(shortcodeAlphabet, r)
		if i < 0 {
			return "", fmt.Errorf("invalid shortcode character %q", r)
		}
		id.Mul(id, base)
		id.Add(id, big.NewInt(int64(i)))
	}
	return id.String(), nil
}
