package domain

// Contact is the person or group on the other end of the channel.
type Contact struct {
	ID         int64  `json:"id"`
	CompanyID  int64  `json:"companyId"`
	Name       string `json:"name"`
	Number     string `json:"number"`
	IsGroup    bool   `json:"isGroup"`
	DisableBot bool   `json:"disableBot"`
}
