package domain

// Queue is a department bucket used to route pending tickets.
type Queue struct {
	ID        int64  `json:"id"`
	CompanyID int64  `json:"companyId"`
	Name      string `json:"name"`
}
