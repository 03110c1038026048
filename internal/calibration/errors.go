package calibration

import "fmt"

// InsufficientDataError reports that neither an AI estimate nor any
// historical data was available. The feature extractor's deterministic
// fallback always supplies an estimate, so this indicates a caller contract
// violation rather than a recoverable runtime state.
type InsufficientDataError struct {
	Reason string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for calibration: %s", e.Reason)
}
