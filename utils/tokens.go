package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LinkTokenTTL is the lifetime of every emailed link token.
const LinkTokenTTL = 7 * 24 * time.Hour

// Claim key spellings accepted on verification. Older links carry snake_case
// keys, so each logical claim has more than one name.
var (
	rfqIDKeys       = []string{"rfqId", "rfq_id", "rfqID"}
	emailKeys       = []string{"email", "vendorEmail", "vendor_email"}
	vendorNameKeys  = []string{"vendorName", "vendor_name"}
	vendorEmailKeys = []string{"vendorEmail", "vendor_email"}
)

// LinkClaims is the normalized payload of a link token. A token is vendor
// scoped when VendorName is set; otherwise it belongs to the RFQ requester.
type LinkClaims struct {
	RFQID      string
	Email      string
	VendorName string
	ExpiresAt  time.Time
}

func (c LinkClaims) IsVendor() bool {
	return c.VendorName != ""
}

type TokenManager struct {
	secret []byte
	now    func() time.Time
}

func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(strings.TrimSpace(secret)), now: time.Now}
}

// Ready reports a missing signing secret as a configuration error.
func (m *TokenManager) Ready() error {
	if len(m.secret) == 0 {
		return fmt.Errorf("%w: token signing secret is not set", ErrConfiguration)
	}
	return nil
}

// WithClock swaps the time source, for tests.
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	m.now = now
	return m
}

func (m *TokenManager) IssueVendorToken(vendorName, vendorEmail, rfqID string) (string, error) {
	return m.issue(jwt.MapClaims{
		"vendorName":  vendorName,
		"vendorEmail": vendorEmail,
		"rfqId":       rfqID,
	}, LinkTokenTTL)
}

func (m *TokenManager) IssueRequesterToken(email, rfqID string) (string, error) {
	return m.issue(jwt.MapClaims{
		"email": email,
		"rfqId": rfqID,
	}, LinkTokenTTL)
}

func (m *TokenManager) issue(claims jwt.MapClaims, ttl time.Duration) (string, error) {
	if err := m.Ready(); err != nil {
		return "", err
	}
	now := m.now()
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(ttl).Unix()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("signing link token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and normalizes the claim keys.
func (m *TokenManager) Verify(tokenStr string) (*LinkClaims, error) {
	if err := m.Ready(); err != nil {
		return nil, err
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid or expired token: %v", ErrUnauthorized, err)
	}

	out := &LinkClaims{
		RFQID:      claimString(claims, rfqIDKeys),
		VendorName: claimString(claims, vendorNameKeys),
	}
	if out.IsVendor() {
		out.Email = claimString(claims, vendorEmailKeys)
	} else {
		out.Email = claimString(claims, emailKeys)
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	if out.RFQID == "" || out.Email == "" {
		return nil, fmt.Errorf("%w: token is missing rfq or email claims", ErrUnauthorized)
	}
	return out, nil
}

// VerifyVendor verifies a vendor-scoped token for rfqID.
func (m *TokenManager) VerifyVendor(tokenStr, rfqID string) (*LinkClaims, error) {
	claims, err := m.Verify(tokenStr)
	if err != nil {
		return nil, err
	}
	if !claims.IsVendor() {
		return nil, fmt.Errorf("%w: token is not a vendor link", ErrForbidden)
	}
	if err := checkRFQ(claims, rfqID); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRequester verifies a requester-scoped token for rfqID.
func (m *TokenManager) VerifyRequester(tokenStr, rfqID string) (*LinkClaims, error) {
	claims, err := m.Verify(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.IsVendor() {
		return nil, fmt.Errorf("%w: vendor links cannot access awards", ErrForbidden)
	}
	if err := checkRFQ(claims, rfqID); err != nil {
		return nil, err
	}
	return claims, nil
}

func checkRFQ(claims *LinkClaims, rfqID string) error {
	if claims.RFQID != rfqID {
		return fmt.Errorf("%w: token does not match rfq %s", ErrForbidden, rfqID)
	}
	return nil
}

func claimString(claims jwt.MapClaims, keys []string) string {
	for _, k := range keys {
		if v, ok := claims[k]; ok {
			switch s := v.(type) {
			case string:
				if t := strings.TrimSpace(s); t != "" {
					return t
				}
			case float64:
				return fmt.Sprintf("%.0f", s)
			}
		}
	}
	return ""
}
