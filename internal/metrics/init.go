package metrics

// InitializeMetrics pre-populates expected label combinations so every
// metric is exported from the first Prometheus scrape.
// Call once at startup after metric registration.
func InitializeMetrics() {
	for _, status := range []string{"success", "upstream_error", "error"} {
		ImageFetchesTotal.WithLabelValues(status)
	}

	for _, source := range []string{"stored", "telegram", "avatar", "placeholder"} {
		ResolutionsTotal.WithLabelValues(source, "success")
		ResolutionsTotal.WithLabelValues(source, "error")
	}

	for _, result := range []string{"ok", "failed", "timeout"} {
		ProbesTotal.WithLabelValues(result)
	}

	for _, path := range []string{"enhance", "optimize", "passthrough"} {
		EnhancementsTotal.WithLabelValues(path, "success")
		EnhancementsTotal.WithLabelValues(path, "error")
		EnhancementDuration.WithLabelValues(path)
	}

	for _, status := range []string{"success", "no_image", "error"} {
		ScraperRequestsTotal.WithLabelValues(status)
	}

	for _, op := range []string{"initialize_schema", "upsert_record", "get_record",
		"delete_record", "clean_expired", "count_records"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}
}
