package nbody

import "errors"

var (
	ErrDuplicateEffect = errors.New("nbody: effect already attached")
	ErrInvalidOrbit    = errors.New("nbody: invalid orbital elements")
	ErrInvalidSystem   = errors.New("nbody: invalid system")
)
