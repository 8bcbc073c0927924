package user

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCBUVisible(t *testing.T) {
	hidden := false
	shown := true

	assert.True(t, User{}.CBUVisible())
	assert.True(t, User{ShowCBU: &shown}.CBUVisible())
	assert.False(t, User{ShowCBU: &hidden}.CBUVisible())
}

func TestProfileUpdate_Validate(t *testing.T) {
	tests := []struct {
		name    string
		update  ProfileUpdate
		wantErr bool
	}{
		{name: "valid", update: ProfileUpdate{Username: "roomie", CBU: "0000003100010000000001"}},
		{name: "trimmed username too short", update: ProfileUpdate{Username: "  ab "}, wantErr: true},
		{name: "missing username", update: ProfileUpdate{}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.update.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestPasswordChange_Validate(t *testing.T) {
	assert.ErrorIs(t, PasswordChange{New: "12345", Confirm: "54321"}.Validate(), ErrPasswordMismatch)
	assert.Error(t, PasswordChange{New: "1234", Confirm: "1234"}.Validate())
	assert.NoError(t, PasswordChange{New: "12345", Confirm: "12345"}.Validate())
}

func TestPasswordReset_Validate(t *testing.T) {
	ok := PasswordReset{UserID: "u1", Token: "t", Password: "secret", Confirm: "secret"}
	assert.NoError(t, ok.Validate())

	short := ok
	short.Password, short.Confirm = "12345", "12345"
	assert.Error(t, short.Validate())

	mismatch := ok
	mismatch.Confirm = "secreT"
	assert.ErrorIs(t, mismatch.Validate(), ErrPasswordMismatch)
}

func TestNormalizeEmail(t *testing.T) {
	email, err := NormalizeEmail("  Bro@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "bro@example.com", email)

	_, err = NormalizeEmail("   ")
	assert.ErrorIs(t, err, ErrBlankEmail)
}

func TestCheckAvatar(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

	ct, err := CheckAvatar(png)
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)

	_, err = CheckAvatar(nil)
	assert.ErrorIs(t, err, ErrAvatarEmpty)

	_, err = CheckAvatar([]byte("just some text"))
	assert.ErrorIs(t, err, ErrAvatarNotImage)

	_, err = CheckAvatar(bytes.Repeat([]byte{0}, MaxAvatarSize+1))
	assert.ErrorIs(t, err, ErrAvatarTooLarge)
}

func TestAvatarURL(t *testing.T) {
	base := "http://localhost:4000/api/v1"

	assert.Equal(t, "", AvatarURL(base, "  "))
	assert.Equal(t, "https://cdn.example.com/a.png", AvatarURL(base, "https://cdn.example.com/a.png"))
	assert.Equal(t, "http://localhost:4000/api/v1/uploads/avatars/a.jpg", AvatarURL(base, "avatars/a.jpg"))
	assert.Equal(t, "https://api.bro.app/api/v1/uploads/avatars/a.jpg", AvatarURL("https://api.bro.app/api/v1/", "/avatars/a.jpg"))
}

func TestPasswordSetup_Validate(t *testing.T) {
	assert.NoError(t, PasswordSetup{Username: "roomie", Password: "12345", Confirm: "12345"}.Validate())
	assert.Error(t, PasswordSetup{Username: " ro ", Password: "12345", Confirm: "12345"}.Validate())
	assert.ErrorIs(t, PasswordSetup{Username: "roomie", Password: "12345", Confirm: "1234"}.Validate(), ErrPasswordMismatch)
}
