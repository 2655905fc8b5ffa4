package schemas

const (
	PaperSubmitted  string = "paper.submitted"
	PaperAssigned   string = "paper.assigned"
	PaperPublished  string = "paper.published"
	PaperRejected   string = "paper.rejected"
	PaperFailed     string = "paper.failed"
	ReviewClaimed   string = "review.claimed"
	ReviewSubmitted string = "review.submitted"
)
