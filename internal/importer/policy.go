package importer

// Policy names how a pipeline stage reconciles an incoming record with an
// existing row carrying the same business identity.
type Policy string

const (
	// PolicyReuse keeps the existing row untouched and resolves its id.
	PolicyReuse Policy = "reuse"
	// PolicySkipIfExists never overwrites an existing row, even when the
	// incoming payload differs. Manual edits survive re-imports.
	PolicySkipIfExists Policy = "skip-if-exists"
	// PolicyUpdateInPlace refreshes the mutable fields of an existing row.
	PolicyUpdateInPlace Policy = "update-in-place"
	// PolicyIgnoreIfExists silently drops duplicate inserts.
	PolicyIgnoreIfExists Policy = "ignore-if-exists"
)

// PolicyFor returns the reconciliation policy a pipeline stage applies to
// its table; the stages dispatch on the returned value. Segments carry no
// policy of their own: they are only written when their source is created
// in the same run.
func PolicyFor(table string) Policy {
	switch table {
	case "sources":
		return PolicyReuse
	case "tags":
		// mutable field: label
		return PolicyUpdateInPlace
	case "exercises":
		return PolicySkipIfExists
	case "exercise_tags":
		// mutable fields: weight, confidence
		return PolicyUpdateInPlace
	case "exercise_source_segments":
		return PolicyIgnoreIfExists
	}
	return PolicyReuse
}
