package detect

import "errors"

// ErrConfigValidation is returned when a detection-config update supplies an
// invalid value, such as a non-positive threshold.
var ErrConfigValidation = errors.New("invalid detection config")

// ErrUnknownDomain is returned when an anomaly check is requested for a
// domain with no configured threshold.
var ErrUnknownDomain = errors.New("unknown anomaly domain")
