package service

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// Cursors encode the last-seen position as "v1:<unixmilli>:<s3_key>" behind
// base64 so clients treat them as opaque. The key breaks ties between
// entries sharing a modification timestamp.

func encodeCursor(ts int64, key string) string {
	raw := fmt.Sprintf("v1:%d:%s", ts, key)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(cursor string) (int64, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, "", ErrInvalidCursor
	}

	parts := strings.SplitN(string(raw), ":", 3)
	if len(parts) != 3 || parts[0] != "v1" {
		return 0, "", ErrInvalidCursor
	}

	ts, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, "", ErrInvalidCursor
	}

	return ts, parts[2], nil
}
