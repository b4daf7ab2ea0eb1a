package watcher

// ChangePlan says what the views must do about a change.
type ChangePlan struct {
	Reload        bool // Records changed: rebuild the graph
	RefreshCounts bool // Assets changed: refetch counts for the unchanged graph
	ChangedFiles  []string
}

// AnalyzeChanges maps a change event to the work it requires.
func AnalyzeChanges(event ChangeEvent) *ChangePlan {
	plan := &ChangePlan{ChangedFiles: event.Paths}

	switch event.Type {
	case ChangeTypeRecord:
		// A reload refreshes counts only when the graph identity changed, and a record
		// edit may have come with asset edits
		plan.Reload = true
		plan.RefreshCounts = true
	case ChangeTypeAsset:
		plan.RefreshCounts = true
	}

	return plan
}
