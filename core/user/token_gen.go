package user

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	salt    = []byte("peereval.core.user.token_gen")
	b32     = base32.StdEncoding.WithPadding(base32.NoPadding)
	refTime = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)

	ErrInvalidToken = errors.New("invalid sign-in link")
	ErrTokenExpired = errors.New("sign-in link expired")
)

// tokenGenerator makes one-time sign-in tokens.
// A token is bound to the user's state: signing in updates LastLogin, which invalidates it.
type tokenGenerator struct {
	secretKey string
	timeout   time.Duration
	nowFunc   func() time.Time // mockable
}

// EncodeUID base64 encodes given User ID
func EncodeUID(usr User) string {
	return base64.RawURLEncoding.EncodeToString([]byte(usr.ID))
}

// decodeUID base64 decodes given UID
func decodeUID(uid string) (string, error) {
	idBytes, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", err
	}
	return string(idBytes), nil
}

// makeToken generates a sign-in token for a given User.
func (g tokenGenerator) makeToken(usr User) string {
	return g.makeTokenWithTimestamp(usr, g.numMinutesSince2001(g.nowFunc()))
}

// verifyToken checks that a sign-in token for a given User is valid.
func (g tokenGenerator) verifyToken(usr User, token string) error {
	if token == "" {
		return ErrInvalidToken
	}

	parts := strings.SplitN(token, "-", 2)
	if len(parts) < 2 {
		return ErrInvalidToken
	}

	data, err := b32.DecodeString(parts[0])
	if err != nil {
		return ErrInvalidToken
	}
	ts, err := strconv.Atoi(string(data))
	if err != nil {
		return ErrInvalidToken
	}

	// check that token has not been tampered with
	if subtle.ConstantTimeCompare([]byte(g.makeTokenWithTimestamp(usr, ts)), []byte(token)) == 0 {
		return ErrInvalidToken
	}

	// check that the timestamp is within limit
	if (g.numMinutesSince2001(g.nowFunc()) - ts) > int(g.timeout/time.Minute) {
		return ErrTokenExpired
	}
	return nil
}

func (g tokenGenerator) makeTokenWithTimestamp(usr User, ts int) string {
	tsB32 := b32.EncodeToString([]byte(strconv.Itoa(ts)))
	return fmt.Sprintf("%s-%s", tsB32, g.sign(g.hashValue(usr, ts)))
}

func (g tokenGenerator) numMinutesSince2001(t time.Time) int {
	return int(t.Sub(refTime) / time.Minute)
}

func (g tokenGenerator) sign(val []byte) string {
	key := sha256.Sum256(append(salt, g.secretKey...))
	h := hmac.New(sha256.New, key[:])
	_, _ = h.Write(val)
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func (g tokenGenerator) hashValue(usr User, ts int) []byte {
	var val bytes.Buffer
	val.WriteString(usr.ID)
	val.WriteString(usr.Email)
	val.WriteString(strconv.FormatBool(usr.IsActive))
	if usr.LastLogin.Valid {
		val.WriteString(usr.LastLogin.Time.UTC().Format(time.RFC3339Nano))
	}
	val.WriteString(strconv.Itoa(ts))
	return val.Bytes()
}
