package points

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader carries "t=<unix seconds>,v1=<hex hmac>" on award
// deliveries. The MAC covers "<t>.<body>".
const SignatureHeader = "X-Dzemat-Signature"

var (
	ErrMalformedSignature = errors.New("points: malformed signature header")
	ErrStaleSignature     = errors.New("points: signature timestamp outside tolerance")
	ErrSignatureMismatch  = errors.New("points: signature mismatch")
)

func mac(secret string, ts int64, payload []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(strconv.FormatInt(ts, 10)))
	h.Write([]byte{'.'})
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// SignDelivery builds the SignatureHeader value for payload sent at at.
func SignDelivery(secret string, payload []byte, at time.Time) string {
	ts := at.Unix()
	return fmt.Sprintf("t=%d,v1=%s", ts, mac(secret, ts, payload))
}

// VerifyDelivery is the collector side of SignDelivery. A zero tolerance
// skips the timestamp window.
func VerifyDelivery(secret string, payload []byte, header string, now time.Time, tolerance time.Duration) error {
	var (
		ts  int64
		sig string
	)
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return ErrMalformedSignature
		}
		switch key {
		case "t":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return ErrMalformedSignature
			}
			ts = n
		case "v1":
			sig = value
		}
	}
	if ts == 0 || sig == "" {
		return ErrMalformedSignature
	}

	if tolerance > 0 {
		age := now.Sub(time.Unix(ts, 0))
		if age > tolerance || age < -tolerance {
			return ErrStaleSignature
		}
	}
	if !hmac.Equal([]byte(mac(secret, ts, payload)), []byte(sig)) {
		return ErrSignatureMismatch
	}
	return nil
}
