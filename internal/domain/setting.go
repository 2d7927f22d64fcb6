package domain

// Company setting keys read by the lifecycle services.
const (
	SettingSendTransferMessage = "sendMsgTransfTicket"
	SettingTimeCreateNewTicket = "timeCreateNewTicket"
)

// SettingEnabled is the value that switches a boolean setting on.
const SettingEnabled = "enabled"

// Setting is a per-company key/value pair.
type Setting struct {
	CompanyID int64
	Key       string
	Value     string
}
