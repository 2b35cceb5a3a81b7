package model

// Holiday marks a calendar day as non-bookable. Date is a YYYY-MM-DD string
// in the booking timezone, which keeps lookups exact and index-friendly.
type Holiday struct {
	ID   string `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Date string `json:"date" bson:"date" validate:"required,datetime=2006-01-02"`
	Name string `json:"name" bson:"name" validate:"required,min=2,max=120"`
}
