package datatables

import "errors"

var (
	// ErrNilSupplier is returned when constructing an engine without a base
	// collection supplier.
	ErrNilSupplier = errors.New("base collection supplier is required")
)
