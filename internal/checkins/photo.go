package checkins

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const photoContentType = "image/jpeg"

var (
	dataURLPrefix = regexp.MustCompile(`^data:image/\w+;base64,`)

	errPhotoEmpty   = errors.New("photo is empty")
	errPhotoTooBig  = errors.New("photo exceeds size limit")
	errPhotoEncoded = errors.New("photo is not valid base64")
)

// decodePhoto accepts raw base64 or an image data URL.
func decodePhoto(payload string, maxBytes int) ([]byte, error) {
	encoded := dataURLPrefix.ReplaceAllString(strings.TrimSpace(payload), "")
	if encoded == "" {
		return nil, errPhotoEmpty
	}
	if maxBytes > 0 && base64.StdEncoding.DecodedLen(len(encoded)) > maxBytes+2 {
		return nil, errPhotoTooBig
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errPhotoEncoded
	}
	if len(data) == 0 {
		return nil, errPhotoEmpty
	}
	if maxBytes > 0 && len(data) > maxBytes {
		return nil, errPhotoTooBig
	}
	return data, nil
}

func photoKey(userID uuid.UUID, id uuid.UUID) string {
	return fmt.Sprintf("checkins/%s/%s.jpg", userID, id)
}
