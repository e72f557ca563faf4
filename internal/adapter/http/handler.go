package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/kudoware/kudos/internal/app"
	"github.com/kudoware/kudos/internal/domain"
)

const timeFormat = "2006-01-02T15:04:05Z"

// TestimonialResponse is the API representation of a testimonial.
type TestimonialResponse struct {
	ID              string `json:"id" doc:"Unique identifier"`
	AuthorName      string `json:"author_name" doc:"Submitter display name"`
	Content         string `json:"content" doc:"Testimonial text"`
	Rating          int    `json:"rating" doc:"Rating, 1..5"`
	Source          string `json:"source" doc:"Submission channel"`
	CategoryID      string `json:"category_id,omitempty" doc:"Optional category"`
	Status          string `json:"status" doc:"Moderation state"`
	Version         int64  `json:"version" doc:"Optimistic concurrency token"`
	ApprovedBy      string `json:"approved_by,omitempty" doc:"Moderator who approved"`
	ApprovedAt      string `json:"approved_at,omitempty" doc:"Approval timestamp (ISO 8601)"`
	RejectionReason string `json:"rejection_reason,omitempty" doc:"Reason, present only when rejected"`
	Response        string `json:"response,omitempty" doc:"Official response"`
	ResponseAt      string `json:"response_at,omitempty" doc:"Response timestamp (ISO 8601)"`
	CreatedAt       string `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
	UpdatedAt       string `json:"updated_at" doc:"Last update timestamp (ISO 8601)"`
}

func toTestimonialResponse(t domain.Testimonial) TestimonialResponse {
	resp := TestimonialResponse{
		ID:              t.ID,
		AuthorName:      t.AuthorName,
		Content:         t.Content,
		Rating:          t.Rating,
		Source:          string(t.Source),
		CategoryID:      t.CategoryID,
		Status:          string(t.Status),
		Version:         t.Version,
		ApprovedBy:      t.ApprovedBy,
		RejectionReason: t.RejectionReason,
		Response:        t.Response,
		CreatedAt:       t.CreatedAt.Format(timeFormat),
		UpdatedAt:       t.UpdatedAt.Format(timeFormat),
	}
	if t.ApprovedAt != nil {
		resp.ApprovedAt = t.ApprovedAt.Format(timeFormat)
	}
	if t.ResponseAt != nil {
		resp.ResponseAt = t.ResponseAt.Format(timeFormat)
	}
	return resp
}

// --- Submit ---

type SubmitInput struct {
	Body struct {
		AuthorName  string `json:"author_name" minLength:"1" maxLength:"255" doc:"Submitter display name"`
		AuthorEmail string `json:"author_email,omitempty" format:"email" doc:"Submitter email for notifications"`
		Content     string `json:"content" minLength:"1" doc:"Testimonial text"`
		Rating      int    `json:"rating" minimum:"1" maximum:"5" doc:"Rating, 1..5"`
		CategoryID  string `json:"category_id,omitempty" doc:"Optional category"`
		Source      string `json:"source,omitempty" default:"website" enum:"website,mobile_app,email,third_party,social_media,other" doc:"Submission channel"`
	}
}

type SubmitOutput struct {
	Status int
	Body   TestimonialResponse
}

// --- Get / lists ---

type GetInput struct {
	ID string `path:"id" doc:"Testimonial ID"`
}

type GetOutput struct {
	Body TestimonialResponse
}

type ListOutput struct {
	Body []TestimonialResponse
}

type CategoryListInput struct {
	CategoryID string `path:"categoryID" doc:"Category ID"`
}

// --- Moderation ---

type ModerateInput struct {
	ID   string `path:"id" doc:"Testimonial ID"`
	Body struct {
		ExpectedVersion int64  `json:"expected_version" minimum:"1" doc:"Version the caller last read"`
		Actor           string `json:"actor" minLength:"1" doc:"Moderator identifier"`
	}
}

type RejectInput struct {
	ID   string `path:"id" doc:"Testimonial ID"`
	Body struct {
		ExpectedVersion int64  `json:"expected_version" minimum:"1" doc:"Version the caller last read"`
		Actor           string `json:"actor" minLength:"1" doc:"Moderator identifier"`
		Reason          string `json:"reason" minLength:"1" doc:"Rejection reason"`
	}
}

type RespondInput struct {
	ID   string `path:"id" doc:"Testimonial ID"`
	Body struct {
		ExpectedVersion int64  `json:"expected_version" minimum:"1" doc:"Version the caller last read"`
		Actor           string `json:"actor" minLength:"1" doc:"Responder identifier"`
		Response        string `json:"response" minLength:"1" doc:"Official response text"`
	}
}

type ModerateOutput struct {
	Body TestimonialResponse
}

// --- Bulk ---

type BulkInput struct {
	Body struct {
		IDs    []string `json:"ids" minItems:"1" doc:"Testimonial IDs"`
		Action string   `json:"action" doc:"Moderation action applied to every id" enum:"approve,reject,feature,archive"`
		Actor  string   `json:"actor" minLength:"1" doc:"Moderator identifier"`
		Reason string   `json:"reason,omitempty" doc:"Rejection reason, required for reject"`
	}
}

type ItemFailureResponse struct {
	ID    string `json:"id" doc:"Testimonial ID"`
	Error string `json:"error" doc:"Failure kind"`
}

type BatchResponse struct {
	BatchID   string                `json:"batch_id" doc:"Handle for polling"`
	Action    string                `json:"action" doc:"Requested action"`
	Total     int                   `json:"total" doc:"Items in the batch"`
	Succeeded []string              `json:"succeeded" doc:"IDs with successful outcomes"`
	Failed    []ItemFailureResponse `json:"failed" doc:"Per-item terminal failures"`
	Skipped   []string              `json:"skipped,omitempty" doc:"IDs skipped after cancellation"`
	Pending   int                   `json:"pending" doc:"Items without a terminal outcome yet"`
	Cancelled bool                  `json:"cancelled" doc:"Whether the batch was cancelled"`
	Complete  bool                  `json:"complete" doc:"Whether every item is terminal"`
}

func toBatchResponse(s app.BatchStatus) BatchResponse {
	failed := make([]ItemFailureResponse, len(s.Failed))
	for i, f := range s.Failed {
		failed[i] = ItemFailureResponse{ID: f.ID, Error: f.Kind}
	}
	succeeded := s.Succeeded
	if succeeded == nil {
		succeeded = []string{}
	}
	return BatchResponse{
		BatchID:   s.ID,
		Action:    string(s.Action),
		Total:     s.Total,
		Succeeded: succeeded,
		Failed:    failed,
		Skipped:   s.Skipped,
		Pending:   s.Pending,
		Cancelled: s.Cancelled,
		Complete:  s.Complete,
	}
}

type BulkOutput struct {
	Status int
	Body   BatchResponse
}

type BatchStatusInput struct {
	BatchID string `path:"batchID" doc:"Batch handle"`
}

type BatchStatusOutput struct {
	Body BatchResponse
}

type CancelBatchInput struct {
	BatchID string `path:"batchID" doc:"Batch handle"`
}

type CancelBatchOutput struct {
	Body BatchResponse
}

// --- Stats ---

type StatsOutput struct {
	Body struct {
		Total          int64            `json:"total" doc:"All testimonials"`
		AverageRating  float64          `json:"average_rating" doc:"Average rating under the configured policy"`
		CountsByStatus map[string]int64 `json:"counts_by_status" doc:"Count per moderation state"`
		ComputedAt     string           `json:"computed_at" doc:"When the snapshot was computed (ISO 8601)"`
	}
}

// Register adds all testimonial API routes to the Huma API.
func Register(api huma.API, svc *app.ModerationService, listings *app.ListingService, stats *app.StatsAggregator, bulk *app.BulkDispatcher) {
	huma.Register(api, huma.Operation{
		OperationID:   "submit-testimonial",
		Method:        http.MethodPost,
		Path:          "/api/v1/testimonials",
		Summary:       "Submit a new testimonial",
		Tags:          []string{"Testimonials"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *SubmitInput) (*SubmitOutput, error) {
		t, err := svc.Submit(ctx, app.SubmitInput{
			AuthorName:  input.Body.AuthorName,
			AuthorEmail: input.Body.AuthorEmail,
			Content:     input.Body.Content,
			Rating:      input.Body.Rating,
			CategoryID:  input.Body.CategoryID,
			Source:      domain.Source(input.Body.Source),
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		return &SubmitOutput{Status: http.StatusCreated, Body: toTestimonialResponse(t)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-testimonial",
		Method:      http.MethodGet,
		Path:        "/api/v1/testimonials/{id}",
		Summary:     "Get a testimonial by ID",
		Tags:        []string{"Testimonials"},
	}, func(ctx context.Context, input *GetInput) (*GetOutput, error) {
		t, err := listings.Get(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &GetOutput{Body: toTestimonialResponse(t)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-published",
		Method:      http.MethodGet,
		Path:        "/api/v1/testimonials",
		Summary:     "List published testimonials",
		Tags:        []string{"Testimonials"},
	}, func(ctx context.Context, _ *struct{}) (*ListOutput, error) {
		list, err := listings.Published(ctx)
		if err != nil {
			return nil, toHumaError(err)
		}
		return toListOutput(list), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-featured",
		Method:      http.MethodGet,
		Path:        "/api/v1/testimonials/featured",
		Summary:     "List featured testimonials",
		Tags:        []string{"Testimonials"},
	}, func(ctx context.Context, _ *struct{}) (*ListOutput, error) {
		list, err := listings.Featured(ctx)
		if err != nil {
			return nil, toHumaError(err)
		}
		return toListOutput(list), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-category",
		Method:      http.MethodGet,
		Path:        "/api/v1/categories/{categoryID}/testimonials",
		Summary:     "List public testimonials in a category",
		Tags:        []string{"Testimonials"},
	}, func(ctx context.Context, input *CategoryListInput) (*ListOutput, error) {
		list, err := listings.ByCategory(ctx, input.CategoryID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return toListOutput(list), nil
	})

	type moderateFunc func(ctx context.Context, id string, expectedVersion int64, actor string) (domain.Testimonial, error)

	registerModeration := func(operationID, pathSuffix, summary string, apply moderateFunc) {
		huma.Register(api, huma.Operation{
			OperationID: operationID,
			Method:      http.MethodPost,
			Path:        "/api/v1/testimonials/{id}/" + pathSuffix,
			Summary:     summary,
			Tags:        []string{"Moderation"},
		}, func(ctx context.Context, input *ModerateInput) (*ModerateOutput, error) {
			t, err := apply(ctx, input.ID, input.Body.ExpectedVersion, input.Body.Actor)
			if err != nil {
				return nil, toHumaError(err)
			}
			return &ModerateOutput{Body: toTestimonialResponse(t)}, nil
		})
	}

	registerModeration("approve-testimonial", "approve", "Approve a testimonial", svc.Approve)
	registerModeration("feature-testimonial", "feature", "Feature an approved testimonial", svc.Feature)
	registerModeration("archive-testimonial", "archive", "Archive a testimonial", svc.Archive)

	huma.Register(api, huma.Operation{
		OperationID: "reject-testimonial",
		Method:      http.MethodPost,
		Path:        "/api/v1/testimonials/{id}/reject",
		Summary:     "Reject a testimonial",
		Tags:        []string{"Moderation"},
	}, func(ctx context.Context, input *RejectInput) (*ModerateOutput, error) {
		t, err := svc.Reject(ctx, input.ID, input.Body.ExpectedVersion, input.Body.Actor, input.Body.Reason)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ModerateOutput{Body: toTestimonialResponse(t)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "respond-testimonial",
		Method:      http.MethodPost,
		Path:        "/api/v1/testimonials/{id}/respond",
		Summary:     "Attach an official response",
		Tags:        []string{"Moderation"},
	}, func(ctx context.Context, input *RespondInput) (*ModerateOutput, error) {
		t, err := svc.Respond(ctx, input.ID, input.Body.ExpectedVersion, input.Body.Actor, input.Body.Response)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ModerateOutput{Body: toTestimonialResponse(t)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "bulk-moderate",
		Method:        http.MethodPost,
		Path:          "/api/v1/moderation/bulk",
		Summary:       "Apply one action to many testimonials",
		Tags:          []string{"Moderation"},
		DefaultStatus: http.StatusAccepted,
	}, func(ctx context.Context, input *BulkInput) (*BulkOutput, error) {
		handle, err := bulk.Submit(ctx, input.Body.IDs, domain.Action(input.Body.Action), input.Body.Actor, input.Body.Reason, nil)
		if err != nil {
			return nil, toHumaError(err)
		}
		status, err := bulk.Status(handle)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &BulkOutput{Status: http.StatusAccepted, Body: toBatchResponse(status)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-batch",
		Method:      http.MethodGet,
		Path:        "/api/v1/moderation/batches/{batchID}",
		Summary:     "Poll a bulk batch",
		Tags:        []string{"Moderation"},
	}, func(ctx context.Context, input *BatchStatusInput) (*BatchStatusOutput, error) {
		status, err := bulk.Status(app.JobHandle{BatchID: input.BatchID})
		if err != nil {
			return nil, toHumaError(err)
		}
		return &BatchStatusOutput{Body: toBatchResponse(status)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "cancel-batch",
		Method:      http.MethodDelete,
		Path:        "/api/v1/moderation/batches/{batchID}",
		Summary:     "Cancel a bulk batch",
		Description: "Items not yet picked up are skipped; items already running finish.",
		Tags:        []string{"Moderation"},
	}, func(ctx context.Context, input *CancelBatchInput) (*CancelBatchOutput, error) {
		handle := app.JobHandle{BatchID: input.BatchID}
		if err := bulk.Cancel(handle); err != nil {
			return nil, toHumaError(err)
		}
		status, err := bulk.Status(handle)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CancelBatchOutput{Body: toBatchResponse(status)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-stats",
		Method:      http.MethodGet,
		Path:        "/api/v1/stats",
		Summary:     "Aggregate testimonial statistics",
		Tags:        []string{"Statistics"},
	}, func(ctx context.Context, _ *struct{}) (*StatsOutput, error) {
		snap, err := stats.Stats(ctx)
		if err != nil {
			return nil, toHumaError(err)
		}

		out := &StatsOutput{}
		out.Body.Total = snap.Total
		out.Body.AverageRating = snap.AverageRating
		out.Body.CountsByStatus = make(map[string]int64, len(snap.CountsByStatus))
		for status, count := range snap.CountsByStatus {
			out.Body.CountsByStatus[string(status)] = count
		}
		out.Body.ComputedAt = snap.ComputedAt.Format(timeFormat)
		return out, nil
	})
}

func toListOutput(list []domain.Testimonial) *ListOutput {
	resp := make([]TestimonialResponse, len(list))
	for i, t := range list {
		resp[i] = toTestimonialResponse(t)
	}
	return &ListOutput{Body: resp}
}

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return huma.Error404NotFound("testimonial not found")
	}
	if errors.Is(err, app.ErrUnknownBatch) {
		return huma.Error404NotFound("batch not found")
	}
	if errors.Is(err, domain.ErrPermissionDenied) {
		return huma.Error403Forbidden(err.Error())
	}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return huma.Error422UnprocessableEntity(validationErr.Error())
	}

	var transitionErr *domain.TransitionError
	if errors.As(err, &transitionErr) {
		return huma.Error409Conflict(transitionErr.Error())
	}

	var conflictErr *domain.VersionConflictError
	if errors.As(err, &conflictErr) {
		return huma.Error409Conflict(conflictErr.Error())
	}

	var actionErr *domain.InvalidActionError
	if errors.As(err, &actionErr) {
		return huma.Error400BadRequest(actionErr.Error())
	}

	var transientErr *domain.TransientError
	if errors.As(err, &transientErr) {
		return huma.Error503ServiceUnavailable("temporarily unavailable")
	}

	return huma.Error500InternalServerError("internal server error")
}
