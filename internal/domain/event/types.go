package event

// Type is the dotted event taxonomy.
type Type string

const (
	TypeDialogCreate       Type = "dialog.create"
	TypeDialogDelete       Type = "dialog.delete"
	TypeDialogMemberAdd    Type = "dialog.member.add"
	TypeDialogMemberRemove Type = "dialog.member.remove"
	TypeDialogTopicCreate  Type = "dialog.topic.create"
	TypeMessageAdd         Type = "message.add"
	TypeMessageRead        Type = "message.read"
	TypePackCreate         Type = "pack.create"
	TypePackDelete         Type = "pack.delete"
	TypePackDialogAdd      Type = "pack.dialog.add"
	TypePackDialogRemove   Type = "pack.dialog.remove"

	TypeUserStatsUpdate   Type = "user.stats.update"
	TypeDialogStatsUpdate Type = "dialog.stats.update"
	TypePackStatsUpdate   Type = "pack.stats.update"
)

// EntityType values used on events.
const (
	EntityDialog  = "dialog"
	EntityMember  = "member"
	EntityMessage = "message"
	EntityTopic   = "topic"
	EntityPack    = "pack"
	EntityUser    = "user"
)
