package forecast

import (
	"errors"

	"github.com/Serrowxd/fluxor-sub001/internal/forecast/model"
)

// ErrInsufficientHistory is returned when a product has fewer observations
// than the configured minimum. Callers should not retry until more data
// has been ingested.
var ErrInsufficientHistory = errors.New("insufficient sales history")

// ErrModelComputation wraps failures inside the forecasting models, such as
// degenerate series that a model cannot fit.
var ErrModelComputation = model.ErrComputation
