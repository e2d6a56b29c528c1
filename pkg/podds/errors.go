package podds

import "errors"

// Rejected requests. Missing data is never an error, it falls back to defaults
var (
	ErrEmptyDataset   = errors.New("dataset contains no played matches")
	ErrSameTeam       = errors.New("home and away team must differ")
	ErrUnknownTeam    = errors.New("team not found in dataset")
	ErrInvalidRequest = errors.New("invalid prediction request")
)

// IsRequestError reports whether err is a rejected request rather than an internal failure
func IsRequestError(err error) bool {
	return errors.Is(err, ErrSameTeam) || errors.Is(err, ErrUnknownTeam) || errors.Is(err, ErrInvalidRequest)
}
