package usertoken

// Enumerable is the interface implemented by types that can only be represented
// by enumerable, constant values.
type Enumerable interface {
	String() string
	Valid() error
}

// A SortField is a column the listing endpoint may order by.
//
// The allow-list exists so user input never reaches the store
// as an arbitrary sort expression.
type SortField string

const (
	SortFieldEmail SortField = "email"
)

func (sf SortField) String() string { return string(sf) }

func (sf SortField) Valid() error {
	switch sf {
	case SortFieldEmail:
		return nil
	default:
		return ErrNotValid
	}
}

// A SortDirection is the direction the listing endpoint orders records in.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

func (sd SortDirection) String() string { return string(sd) }

func (sd SortDirection) Valid() error {
	switch sd {
	case SortAsc, SortDesc:
		return nil
	default:
		return ErrNotValid
	}
}
