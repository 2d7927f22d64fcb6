package domain

// User is an agent that can own open tickets.
type User struct {
	ID        int64  `json:"id"`
	CompanyID int64  `json:"companyId"`
	Name      string `json:"name"`
}
