package domain

import "time"

// Status represents the moderation state of a testimonial.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusFeatured Status = "featured"
	StatusArchived Status = "archived"
)

// Statuses lists every valid status. No other value ever persists.
var Statuses = []Status{
	StatusPending,
	StatusApproved,
	StatusRejected,
	StatusFeatured,
	StatusArchived,
}

// IsPublic reports whether testimonials in this status appear on
// public read paths. Crossing the public boundary is what forces
// list-level cache invalidation.
func (s Status) IsPublic() bool {
	return s == StatusApproved || s == StatusFeatured
}

// Action is a moderation command applied to a single testimonial.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionFeature Action = "feature"
	ActionArchive Action = "archive"
	// ActionRespond never changes status; it is exempt from the
	// transition table and handled separately by the service.
	ActionRespond Action = "respond"
	// ActionSubmit marks intake events. Not a moderation transition.
	ActionSubmit Action = "submit"
)

// BulkActions are the actions accepted by the bulk dispatcher.
var BulkActions = []Action{ActionApprove, ActionReject, ActionFeature, ActionArchive}

// Source records where a testimonial was submitted from.
type Source string

const (
	SourceWebsite     Source = "website"
	SourceMobileApp   Source = "mobile_app"
	SourceEmail       Source = "email"
	SourceThirdParty  Source = "third_party"
	SourceSocialMedia Source = "social_media"
	SourceOther       Source = "other"
)

// MaxRating is the inclusive upper bound for testimonial ratings.
const MaxRating = 5

// Transition defines a valid state change: an action moves a
// testimonial from Src to Dst.
type Transition struct {
	Action Action
	Src    Status
	Dst    Status
}

// Transitions defines all valid status changes in the moderation
// lifecycle. This is domain knowledge consumed by the FSM adapter.
// Any call whose current status is not a listed source fails with
// TransitionError; approving an already-approved item is an error,
// not a no-op, so double submissions surface instead of hiding.
var Transitions = []Transition{
	{Action: ActionApprove, Src: StatusPending, Dst: StatusApproved},
	{Action: ActionApprove, Src: StatusRejected, Dst: StatusApproved},
	{Action: ActionReject, Src: StatusPending, Dst: StatusRejected},
	{Action: ActionReject, Src: StatusApproved, Dst: StatusRejected},
	{Action: ActionReject, Src: StatusFeatured, Dst: StatusRejected},
	{Action: ActionFeature, Src: StatusApproved, Dst: StatusFeatured},
	{Action: ActionArchive, Src: StatusPending, Dst: StatusArchived},
	{Action: ActionArchive, Src: StatusApproved, Dst: StatusArchived},
	{Action: ActionArchive, Src: StatusRejected, Dst: StatusArchived},
	{Action: ActionArchive, Src: StatusFeatured, Dst: StatusArchived},
}

// Testimonial is the core domain entity. Version is the optimistic
// concurrency token: it increases by one on every successful mutation,
// and a write whose expected version does not match the stored one is
// rejected as stale.
type Testimonial struct {
	ID          string
	AuthorName  string
	AuthorEmail string
	Content     string
	Rating      int
	Source      Source
	CategoryID  string
	Status      Status
	Version     int64

	ApprovedBy      string
	ApprovedAt      *time.Time
	RejectionReason string

	Response   string
	ResponseBy string
	ResponseAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTestimonial creates a testimonial in the initial "pending" state
// at version 1. Callers operating with approval switched off promote
// it through the state machine like any other transition.
func NewTestimonial(id, authorName, authorEmail, content string, rating int, categoryID string, source Source) Testimonial {
	now := time.Now().UTC()
	if source == "" {
		source = SourceWebsite
	}
	return Testimonial{
		ID:          id,
		AuthorName:  authorName,
		AuthorEmail: authorEmail,
		Content:     content,
		Rating:      rating,
		Source:      source,
		CategoryID:  categoryID,
		Status:      StatusPending,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
