package jobs

import (
	"errors"
	"fmt"
)

// ErrMalformedJob classifies permanently unprocessable payloads. The other
// sentinels wrap it so a single errors.Is check covers all of them.
var (
	ErrMalformedJob     = errors.New("malformed job payload")
	ErrMissingProofFile = fmt.Errorf("%w: missing proof file", ErrMalformedJob)
	ErrInvalidProofKind = fmt.Errorf("%w: invalid proof kind", ErrMalformedJob)
)
