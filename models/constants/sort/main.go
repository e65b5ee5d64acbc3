package sort

import (
	"spatools/api/models/constants"
)

const (
	Ascending  constants.SortDirection = "asc"
	Descending constants.SortDirection = "desc"
)
