package constant

const (
	// HeaderID is the request identifier header key.
	HeaderID = "X-Request-Id"
	// HeaderUserAgent is the HTTP User-Agent header key.
	HeaderUserAgent = "User-Agent"
)
