package detect

// Event topics published by the Detect module.
const (
	// TopicAnomaliesDetected carries a retail.AnomaliesDetected payload at
	// the end of every sweep that flagged at least one anomaly.
	TopicAnomaliesDetected = "detect.anomalies.detected"

	// TopicAnomalyResolved carries a retail.AnomalyResolved payload on the
	// first (and only the first) resolution of an anomaly.
	TopicAnomalyResolved = "detect.anomaly.resolved"
)
