package ingest

// Event topics published by the Ingest module.
const (
	TopicOrderReceived = "ingest.order.received"
	TopicSalesActual   = "ingest.sales.actual"
)
