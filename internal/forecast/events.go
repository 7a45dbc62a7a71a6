package forecast

// Event topics published by the Forecast module.
const (
	// TopicForecastGenerated carries a retail.ForecastGenerated payload
	// whenever a fresh (non-cached) forecast is produced.
	TopicForecastGenerated = "forecast.generated"
)
