package g2a

import (
	"regexp"
	"strconv"

	"github.com/google/uuid"
)

var (
	productIDPattern = regexp.MustCompile(`i(\d+)$`)
	offerIDPattern   = regexp.MustCompile(`[a-fA-F0-9]{8}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{12}`)
)

// ProductIDFromURL extracts the numeric catalog product id from a product
// page URL of the form ".../some-product-i10000070179155".
func ProductIDFromURL(rawURL string) (int64, bool) {
	match := productIDPattern.FindStringSubmatch(rawURL)
	if match == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// OfferIDFrom extracts and validates the offer UUID embedded in a cell value,
// which may be a bare id or a full URL.
func OfferIDFrom(urlOrID string) (string, bool) {
	match := offerIDPattern.FindString(urlOrID)
	if match == "" {
		return "", false
	}
	id, err := uuid.Parse(match)
	if err != nil {
		return "", false
	}
	return id.String(), true
}
