package repository

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewRFQID returns a sortable, opaque identifier that carries no requester data.
func NewRFQID() string {
	return ulid.Make().String()
}

// NewReplyID identifies one vendor submission. A vendor may resubmit, so the
// submission time is part of the id.
func NewReplyID(rfqID, vendorEmail string, at time.Time) string {
	return fmt.Sprintf("%s-%s-%d", rfqID, strings.ToLower(strings.TrimSpace(vendorEmail)), at.UnixMilli())
}

// GeneratePONumber builds numbers like PO-20260301-KX48213.
func GeneratePONumber(at time.Time) string {
	return fmt.Sprintf("PO-%s-%s", at.Format("20060102"), GenerateRandomCode())
}

// GenerateRandomCode draws from the shared, auto-seeded source so calls in
// the same instant still differ.
func GenerateRandomCode() string {
	letters := "ABCDEFGHJKLMNPQRSTUVWXYZ"
	prefix := string(letters[rand.Intn(len(letters))]) + string(letters[rand.Intn(len(letters))])
	number := rand.Intn(90000) + 10000

	return fmt.Sprintf("%s%d", prefix, number)
}
