package keys

import (
	"encoding/hex"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

func GenID() string {
	return uuid.NewString()
}

var msgSeq atomic.Uint64

// NextSeq returns a process-monotonic tiebreaker for messages sharing a timestamp.
func NextSeq() uint64 {
	return msgSeq.Add(1)
}

func PadTS(ts int64) string {
	return fmt.Sprintf("%0*d", TSPadWidth, ts)
}

func PadSeq(seq uint64) string {
	return fmt.Sprintf("%0*d", SeqPadWidth, seq)
}

func GenUserKey(userID string) string {
	return fmt.Sprintf(UserKey, userID)
}

func GenUserExternalKey(externalID string) string {
	return fmt.Sprintf(UserExternalKey, externalID)
}

func GenConversationKey(convID string) string {
	return fmt.Sprintf(ConversationKey, convID)
}

func GenMemberKey(convID, userID string) string {
	return fmt.Sprintf(MemberKey, convID, userID)
}

func GenMemberPrefix(convID string) string {
	return fmt.Sprintf(MemberPrefix, convID)
}

func GenConversationMsgKey(convID string, createdAt int64, seq uint64, msgID string) string {
	return fmt.Sprintf(ConversationMsgKey, convID, PadTS(createdAt), PadSeq(seq), msgID)
}

func GenConversationMsgPrefix(convID string) string {
	return fmt.Sprintf(ConversationMsgPfx, convID)
}

func GenRelUserInConversation(userID, convID string) string {
	return fmt.Sprintf(RelUserInConversation, userID, convID)
}

func GenRelUserPrefix(userID string) string {
	return fmt.Sprintf(RelUserPrefix, userID)
}

// GenDirectIndexKey is symmetric in its arguments.
func GenDirectIndexKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf(DirectIndexKey, a, b)
}

func GenMessageKey(msgID string) string {
	return fmt.Sprintf(MessageKey, msgID)
}

func EncodeEmoji(emoji string) string {
	return hex.EncodeToString([]byte(emoji))
}

func GenReactionKey(msgID, emoji, userID string) string {
	return fmt.Sprintf(ReactionKey, msgID, EncodeEmoji(emoji), userID)
}

func GenReactionPrefix(msgID string) string {
	return fmt.Sprintf(ReactionPrefix, msgID)
}

func GenSeenKey(msgID, userID string) string {
	return fmt.Sprintf(SeenKey, msgID, userID)
}

func GenSeenPrefix(msgID string) string {
	return fmt.Sprintf(SeenPrefix, msgID)
}

func GenUnreadKey(userID, convID string) string {
	return fmt.Sprintf(UnreadKey, userID, convID)
}

func GenUnreadPrefix(userID string) string {
	return fmt.Sprintf(UnreadPrefix, userID)
}

func GenTypingKey(convID, userID string) string {
	return fmt.Sprintf(TypingKey, convID, userID)
}

func GenTypingPrefix(convID string) string {
	return fmt.Sprintf(TypingPrefix, convID)
}

func GenBlobKey(handle string) string {
	return fmt.Sprintf(BlobKey, handle)
}
