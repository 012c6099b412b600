// Package invite builds the sign-in link and QR image members scan to reach
// their tenant's login screen with the tenant code pre-filled.
package invite

import (
	"errors"
	"net/url"
	"strings"

	"github.com/skip2/go-qrcode"
)

const (
	DefaultSize = 512
	minSize     = 128
	maxSize     = 2048
)

var ErrInvalidSize = errors.New("invalid size: must be between 128 and 2048")

// LoginURL returns publicURL/login?tenant=code.
func LoginURL(publicURL, tenantCode string) (string, error) {
	u, err := url.Parse(strings.TrimRight(publicURL, "/"))
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", errors.New("public url must start with http:// or https://")
	}
	u.Path += "/login"
	u.RawQuery = url.Values{"tenant": {tenantCode}}.Encode()
	return u.String(), nil
}

// QRCode renders content as a PNG. A zero size means DefaultSize.
func QRCode(content string, size int) ([]byte, error) {
	if size == 0 {
		size = DefaultSize
	}
	if size < minSize || size > maxSize {
		return nil, ErrInvalidSize
	}

	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	return qr.PNG(size)
}
