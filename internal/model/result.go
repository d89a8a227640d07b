package model

// QueryResult is the outcome of one entity lookup. Err is a failure marker,
// not a control-flow signal: Bindings is always usable, empty when Err is set.
type QueryResult struct {
	Entity   string    `json:"entity"`
	Bindings []Binding `json:"bindings"`
	Err      error     `json:"-"`
	Cached   bool      `json:"cached,omitempty"`
	Attempts int       `json:"attempts,omitempty"`
}

// Failed reports whether the remote lookup failed
func (r QueryResult) Failed() bool {
	return r.Err != nil
}
