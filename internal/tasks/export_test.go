package tasks

var (
	ListQuery         = listQuery
	MarkInProgressSQL = markInProgressSQL
	CompleteSQL       = completeSQL
	FailSQL           = failSQL
	CancelSQL         = cancelSQL
)
