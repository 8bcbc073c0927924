package user

import (
	"errors"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxAvatarSize is the upload limit enforced before the request leaves the client.
const MaxAvatarSize = 2 << 20

var (
	ErrAvatarEmpty    = errors.New("avatar file is empty")
	ErrAvatarTooLarge = errors.New("avatar can't be larger than 2MB")
	ErrAvatarNotImage = errors.New("only images are allowed (JPEG, PNG, WebP, GIF)")
)

// CheckAvatar returns the detected content type of an avatar upload.
func CheckAvatar(img []byte) (string, error) {
	if len(img) == 0 {
		return "", ErrAvatarEmpty
	}
	if len(img) > MaxAvatarSize {
		return "", ErrAvatarTooLarge
	}

	mt := mimetype.Detect(img)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", ErrAvatarNotImage
	}
	return mt.String(), nil
}

// AvatarURL resolves an avatar reference for display. Absolute URLs are kept,
// internal paths (avatars/xxx.jpg) point at the backend uploads route.
func AvatarURL(apiBase, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}

	host := strings.TrimSuffix(strings.TrimSuffix(apiBase, "/"), "/api/v1")
	if host == "" {
		host = "http://localhost:4000"
	}
	return host + "/api/v1/uploads/" + strings.TrimPrefix(ref, "/")
}
