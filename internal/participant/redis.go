package participant

// 定义与参与者相关的Redis镜像键名
const (
	// KnownParticipantsKey 是一个Set，镜像所有出现过的参与者ID。
	// Key: known_participants
	// Member: 参与者UUID
	KnownParticipantsKey = "known_participants"

	// VotedByParticipantKey 是一个Set，镜像 (参与者,类别) 去重索引。
	// Member: "<participantID>:<categoryID>"
	VotedByParticipantKey = "votes:by_participant"

	// VotedByDeviceKey 是一个Set，镜像 (设备,类别) 去重索引。
	// Member: "<deviceID>:<categoryID>"
	VotedByDeviceKey = "votes:by_device"
)

// DedupMember 构造去重镜像Set的成员表示
func DedupMember(identity, categoryID string) string {
	return identity + ":" + categoryID
}
