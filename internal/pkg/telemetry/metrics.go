package telemetry

// Span and attribute names used for tracing the activity pipeline.
const (
	TracerName = "github.com/samirrijal/trailwhisper"

	SpanUploadBatch   = "upload.batch"
	SpanUploadFile    = "upload.file"
	SpanVisitsNear    = "visits.near"
	SpanActivityQuery = "activities.query"
	SpanReprocess     = "activities.reprocess"

	AttrFileName   = "file.name"
	AttrFileSize   = "file.size"
	AttrSport      = "activity.sport"
	AttrPoints     = "activity.points"
	AttrActivityID = "activity.id"
	AttrRadius     = "visits.radius_m"
)
