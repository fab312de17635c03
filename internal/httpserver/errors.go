package httpserver

const (
	ErrInvalidJSON      = "invalid json"
	ErrUnauthorized     = "unauthorized"
	ErrForbidden        = "forbidden"
	ErrMissingID        = "missing id"
	ErrDependency       = "dependency error"
	ErrNotFound         = "not found"
	ErrBadForm          = "bad form"
	ErrInvalidSignature = "invalid signature"
)
