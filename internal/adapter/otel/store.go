package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kudoware/kudos/internal/domain"
)

const tracerName = "github.com/kudoware/kudos/internal/adapter/otel"

// TracingStore wraps a domain.TestimonialStore with OpenTelemetry
// tracing. Each method creates a span with semantic attributes and
// records errors.
type TracingStore struct {
	next   domain.TestimonialStore
	tracer trace.Tracer
}

// Compile-time check: TracingStore implements domain.TestimonialStore.
var _ domain.TestimonialStore = (*TracingStore)(nil)

// NewTracingStore creates a tracing decorator around the given store.
func NewTracingStore(next domain.TestimonialStore) *TracingStore {
	return &TracingStore{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (s *TracingStore) Create(ctx context.Context, t domain.Testimonial) error {
	ctx, span := s.tracer.Start(ctx, "TestimonialStore.Create",
		trace.WithAttributes(
			attribute.String("testimonial.id", t.ID),
			attribute.String("testimonial.status", string(t.Status)),
		),
	)
	defer span.End()

	err := s.next.Create(ctx, t)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s *TracingStore) GetByID(ctx context.Context, id string) (domain.Testimonial, error) {
	ctx, span := s.tracer.Start(ctx, "TestimonialStore.GetByID",
		trace.WithAttributes(attribute.String("testimonial.id", id)),
	)
	defer span.End()

	t, err := s.next.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return t, err
}

func (s *TracingStore) Update(ctx context.Context, t domain.Testimonial, expectedVersion int64) (domain.Testimonial, error) {
	ctx, span := s.tracer.Start(ctx, "TestimonialStore.Update",
		trace.WithAttributes(
			attribute.String("testimonial.id", t.ID),
			attribute.String("testimonial.status", string(t.Status)),
			attribute.Int64("testimonial.expected_version", expectedVersion),
		),
	)
	defer span.End()

	updated, err := s.next.Update(ctx, t, expectedVersion)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return updated, err
}

func (s *TracingStore) List(ctx context.Context, filter domain.ListFilter) ([]domain.Testimonial, error) {
	attrs := []attribute.KeyValue{}
	if filter.Status != nil {
		attrs = append(attrs, attribute.String("filter.status", string(*filter.Status)))
	}
	if filter.CategoryID != "" {
		attrs = append(attrs, attribute.String("filter.category_id", filter.CategoryID))
	}

	ctx, span := s.tracer.Start(ctx, "TestimonialStore.List", trace.WithAttributes(attrs...))
	defer span.End()

	out, err := s.next.List(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return out, err
}

func (s *TracingStore) Aggregate(ctx context.Context, policy domain.StatsPolicy) (domain.Aggregate, error) {
	ctx, span := s.tracer.Start(ctx, "TestimonialStore.Aggregate",
		trace.WithAttributes(attribute.Bool("policy.exclude_archived", policy.ExcludeArchived)),
	)
	defer span.End()

	agg, err := s.next.Aggregate(ctx, policy)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return agg, err
}
