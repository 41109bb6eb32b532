package handler

const (
	// RootPath is the root path for the route group.
	RootPath = "/"

	// ErrNilACDFatalLogMsg is used if the app, cfg or db pointer is nil.
	ErrNilACDFatalLogMsg = "app, cfg or db is nil"
)
