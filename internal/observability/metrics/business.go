package metrics

// RecordChainEvent records one observed chain event.
// Kind should be the event kind string (e.g. "large_transfer").
func RecordChainEvent(kind string) {
	ChainEventsTotal.WithLabelValues(kind).Inc()
}

// UpdateGasPrice publishes the latest observed gas price.
// The gauge holds the most recent value, not an average.
func UpdateGasPrice(gwei float64) {
	GasPriceGwei.Set(gwei)
}

// RecordScanWindow records the width of the block window a cycle scanned.
// A shrinking width means cycles are keeping up with the chain head.
func RecordScanWindow(from, to uint64) {
	if to < from {
		return
	}
	ScanWindowBlocks.Observe(float64(to - from + 1))
}

// RecordEnrichment records the result of an explorer metadata lookup.
func RecordEnrichment(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	EnrichmentsTotal.WithLabelValues(result).Inc()
}
