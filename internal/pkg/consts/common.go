package consts

const (
	RoleOperator = "OPERATOR"
	RoleCustomer = "CUSTOMER"
)

const (
	MsgTypeText       = "text"
	MsgTypeAttachment = "attachment"
)

// TombstoneBody 软删除后占位内容，消息槽位保留以维持顺序
const TombstoneBody = "[消息已删除]"
