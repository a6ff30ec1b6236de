package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// replayWindowSeconds bounds how long a captured delivery can be replayed.
const replayWindowSeconds = 300

// VerifyWebhook validates the Stripe-Signature header against the exact raw
// body Stripe signed.
//
// The header contains: t=<unix_ts>,v1=<hex_hmac>
// The signature is HMAC-SHA256 of "<t>.<raw_body>" keyed with the webhook
// secret. Deliveries older than the replay window are rejected even when the
// HMAC matches.
func (p *Provider) VerifyWebhook(rawBody []byte, signatureHeader string) bool {
	if strings.TrimSpace(p.cfg.WebhookSecret) == "" {
		return false
	}
	if strings.TrimSpace(signatureHeader) == "" {
		return false
	}

	ts, sig, ok := parseSignatureHeader(signatureHeader)
	if !ok {
		return false
	}

	if time.Now().Unix()-ts > replayWindowSeconds {
		return false
	}

	expected := computeSignature(p.cfg.WebhookSecret, ts, rawBody)

	return hmac.Equal([]byte(sig), []byte(expected))
}

// parseSignatureHeader extracts the t and v1 values from the header. The
// header is a comma-separated list of key=value pairs; both fields are
// required.
func parseSignatureHeader(header string) (ts int64, sig string, ok bool) {
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			parsed, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil || parsed <= 0 {
				return 0, "", false
			}
			ts = parsed
		case "v1":
			sig = kv[1]
		}
	}
	if ts == 0 || sig == "" {
		return 0, "", false
	}
	return ts, sig, true
}

// computeSignature calculates the hex HMAC-SHA256 of "<t>.<body>".
func computeSignature(secret string, ts int64, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(strconv.FormatInt(ts, 10)))
	h.Write([]byte("."))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
