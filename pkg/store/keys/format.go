package keys

const (
	// notation dictionary for key formats:
	// user   = user profile
	// userx  = external identity -> user id
	// conv   = conversation
	// mem    = conversation member
	// msg    = message
	// rel    = relationship marker
	// dm     = direct conversation index over a sorted user pair
	// rx     = reaction row
	// seen   = seen-by row
	// unread = unread counter
	// typing = typing indicator
	// blob   = blob metadata
	// All segments are separated by ":"
	// <...> = variable segment (e.g. <conv_id>, <msg_id>)

	UserKey         = "user:%s"  // user:<user_id>
	UserExternalKey = "userx:%s" // userx:<external_id>

	ConversationKey    = "conv:%s"              // conv:<conv_id>
	MemberKey          = "conv:%s:mem:%s"       // conv:<conv_id>:mem:<user_id>
	MemberPrefix       = "conv:%s:mem:"         // conv:<conv_id>:mem:
	ConversationMsgKey = "conv:%s:msg:%s:%s:%s" // conv:<conv_id>:msg:<ts>:<seq>:<msg_id>
	ConversationMsgPfx = "conv:%s:msg:"         // conv:<conv_id>:msg:

	RelUserInConversation = "rel:u:%s:c:%s" // rel:u:<user_id>:c:<conv_id>
	RelUserPrefix         = "rel:u:%s:c:"   // rel:u:<user_id>:c:

	DirectIndexKey = "dm:%s:%s" // dm:<lo_user_id>:<hi_user_id>

	MessageKey     = "msg:%s"       // msg:<msg_id>
	ReactionKey    = "rx:%s:%s:%s"  // rx:<msg_id>:<hex_emoji>:<user_id>
	ReactionPrefix = "rx:%s:"       // rx:<msg_id>:
	SeenKey        = "seen:%s:%s"   // seen:<msg_id>:<user_id>
	SeenPrefix     = "seen:%s:"     // seen:<msg_id>:
	UnreadKey      = "unread:%s:%s" // unread:<user_id>:<conv_id>
	UnreadPrefix   = "unread:%s:"   // unread:<user_id>:
	TypingKey      = "typing:%s:%s" // typing:<conv_id>:<user_id>
	TypingPrefix   = "typing:%s:"   // typing:<conv_id>:

	BlobKey = "blob:%s" // blob:<handle>

	// scan roots
	AllUsersPrefix         = "user:"
	AllConversationsPrefix = "conv:"
	AllMessagesPrefix      = "msg:"

	// padding widths (fixed for lexicographic ordering)
	TSPadWidth  = 20 // e.g. %020d
	SeqPadWidth = 10 // e.g. %010d

	MaxIDLength = 128
)
