package domain

import "errors"

// Error taxonomy shared by the extraction pipeline.
// Only ErrConfiguration and open failures (ErrIO at construction) abort a run;
// everything else is logged per line or per document.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrIO            = errors.New("io error")
	ErrParse         = errors.New("parse error")
	ErrWrite         = errors.New("write error")
	ErrIndexItem     = errors.New("index item error")
)
