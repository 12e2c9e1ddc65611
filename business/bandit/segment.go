package bandit

import (
	"fmt"
	"strings"

	"github.com/choresh/PspRouter-sub000/domain"
)

// SegmentKey partitions statistics so learning stays local to comparable
// transaction classes. Card transactions key on the scheme, everything
// else on the payment method.
func SegmentKey(tx domain.Transaction) string {
	scheme := tx.CardScheme
	if scheme == "" {
		scheme = string(tx.Method)
	}
	return fmt.Sprintf("%s|%s|%s", tx.BuyerCountry, tx.Currency, scheme)
}

// statKey is the flat store key for one (segment, arm) pair. Segment
// keys use "|" internally, so the arm is joined with "#".
func statKey(segmentKey, arm string) string {
	return segmentKey + "#" + arm
}

// splitStatKey recovers (segment, arm) from a flat store key.
func splitStatKey(key string) (string, string, bool) {
	i := strings.Index(key, "#")
	if i < 0 {
		return "", "", false
	}
	return key[:i], key[i+1:], true
}
