package domain

// Company is one row from the company registry shortlist.
type Company struct {
	ID     string // business id from the registry
	Name   string
	Domain string // optional; otherwise resolved via the domain map
}
