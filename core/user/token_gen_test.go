package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"
)

func TestMakeVerifyToken(t *testing.T) {
	now := time.Date(2024, time.March, 1, 9, 30, 0, 0, time.UTC)
	gen := tokenGenerator{
		secretKey: "secret",
		timeout:   24 * time.Hour,
		nowFunc:   func() time.Time { return now },
	}

	usr := User{
		ID:        "1c0b7f3e-6a4e-4b0c-9f59-3f8b1f1d2f6a",
		Name:      "Ada",
		Email:     "ada@test.test",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	validToken := gen.makeToken(usr)

	// generate an expired token
	gen.nowFunc = func() time.Time { return now.Add(-25 * time.Hour) }
	expiredToken := gen.makeToken(usr)
	gen.nowFunc = func() time.Time { return now }

	loggedIn := usr
	loggedIn.LastLogin = null.TimeFrom(now)

	otherSecret := gen
	otherSecret.secretKey = "other"

	tests := []struct {
		name    string
		gen     tokenGenerator
		usr     User
		token   string
		wantErr error
	}{
		{name: "no token", gen: gen, usr: usr, wantErr: ErrInvalidToken},
		{name: "invalid parts len", gen: gen, usr: usr, token: "lmaooolol", wantErr: ErrInvalidToken},
		{name: "invalid base32", gen: gen, usr: usr, token: "hahaha-sigsig-sig", wantErr: ErrInvalidToken},
		{name: "invalid timestamp", gen: gen, usr: usr, token: "NRXWY-sigsig-sig", wantErr: ErrInvalidToken},
		{name: "invalid signature", gen: gen, usr: usr, token: "HE4TS-sigsig-sig", wantErr: ErrInvalidToken},
		{name: "expired token", gen: gen, usr: usr, token: expiredToken, wantErr: ErrTokenExpired},
		{name: "already used token", gen: gen, usr: loggedIn, token: validToken, wantErr: ErrInvalidToken},
		{name: "other secret", gen: otherSecret, usr: usr, token: validToken, wantErr: ErrInvalidToken},
		{name: "valid token", gen: gen, usr: usr, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, tt.gen.verifyToken(tt.usr, tt.token))
		})
	}
}

func TestEncodeUID(t *testing.T) {
	usr := User{ID: "1c0b7f3e-6a4e-4b0c-9f59-3f8b1f1d2f6a"}

	id, err := decodeUID(EncodeUID(usr))
	assert.NoError(t, err)
	assert.Equal(t, usr.ID, id)

	_, err = decodeUID("not base64!")
	assert.Error(t, err)
}
