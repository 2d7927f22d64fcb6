package domain

// Whatsapp is a channel connection: one messaging session/number.
type Whatsapp struct {
	ID                int64  `json:"id"`
	CompanyID         int64  `json:"companyId"`
	Name              string `json:"name"`
	CompletionMessage string `json:"completionMessage"`
	RatingMessage     string `json:"ratingMessage"`
}
