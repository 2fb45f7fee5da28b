package keys

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// TailSegment returns the last ":" separated segment of key.
func TailSegment(key string) string {
	if i := strings.LastIndexByte(key, ':'); i >= 0 {
		return key[i+1:]
	}
	return key
}

// ParseReactionKey splits rx:<msg_id>:<hex_emoji>:<user_id>.
func ParseReactionKey(key string) (msgID, emoji, userID string, err error) {
	parts := strings.Split(key, ":")
	if len(parts) != 4 || parts[0] != "rx" {
		return "", "", "", fmt.Errorf("invalid reaction key: %s", key)
	}
	raw, derr := hex.DecodeString(parts[2])
	if derr != nil {
		return "", "", "", fmt.Errorf("invalid reaction emoji segment: %w", derr)
	}
	return parts[1], string(raw), parts[3], nil
}

// ParseConversationMsgKey splits conv:<conv_id>:msg:<ts>:<seq>:<msg_id>.
func ParseConversationMsgKey(key string) (convID string, createdAt int64, seq uint64, msgID string, err error) {
	parts := strings.Split(key, ":")
	if len(parts) != 6 || parts[0] != "conv" || parts[2] != "msg" {
		return "", 0, 0, "", fmt.Errorf("invalid conversation message key: %s", key)
	}
	if len(parts[3]) != TSPadWidth || len(parts[4]) != SeqPadWidth {
		return "", 0, 0, "", fmt.Errorf("invalid padding in key: %s", key)
	}
	if createdAt, err = strconv.ParseInt(parts[3], 10, 64); err != nil {
		return "", 0, 0, "", fmt.Errorf("invalid timestamp segment: %w", err)
	}
	if seq, err = strconv.ParseUint(parts[4], 10, 64); err != nil {
		return "", 0, 0, "", fmt.Errorf("invalid sequence segment: %w", err)
	}
	return parts[1], createdAt, seq, parts[5], nil
}
