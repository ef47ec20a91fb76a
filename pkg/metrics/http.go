package metrics

// HTTPMetrics provides observability for the HTTP adapter.
type HTTPMetrics interface {
	// RecordRequestStart increments the in-flight request gauge.
	RecordRequestStart()

	// RecordRequestEnd decrements the in-flight request gauge.
	RecordRequestEnd()

	// RecordResponse records a response by HTTP method and status code
	// along with its body size.
	RecordResponse(method string, status int, bytes int)

	// RecordRateLimited increments the counter of rejected requests.
	RecordRateLimited()
}

// NewNoopHTTPMetrics returns an HTTPMetrics that discards everything.
func NewNoopHTTPMetrics() HTTPMetrics {
	return noopHTTPMetrics{}
}

type noopHTTPMetrics struct{}

func (noopHTTPMetrics) RecordRequestStart()                                 {}
func (noopHTTPMetrics) RecordRequestEnd()                                   {}
func (noopHTTPMetrics) RecordResponse(method string, status int, bytes int) {}
func (noopHTTPMetrics) RecordRateLimited()                                  {}
