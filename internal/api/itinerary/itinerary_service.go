package itinerary

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	generativeAI "github.com/FACorreiaa/go-hk-tourism-ai/internal/api/generative_ai"
	"github.com/FACorreiaa/go-hk-tourism-ai/internal/types"
)

const (
	MaxDuration          = 14
	itineraryTemperature = 0.4
	defaultTravelStyle   = "moderate"
	defaultBudget        = "medium"
)

// PracticalTips accompany every generated itinerary.
var PracticalTips = []string{
	"Get an Octopus Card at the airport for MTR, buses, ferries and convenience stores.",
	"Download the MTR Mobile app for live route planning.",
	"Carry some cash; smaller restaurants and markets may not take cards.",
	"Check the Hong Kong Observatory forecast and keep an indoor backup for rainy days.",
	"Tipping is not expected; most restaurants add a 10% service charge.",
}

type Service interface {
	Generate(ctx context.Context, req types.ItineraryRequest) ([]types.DayPlan, error)
	Available() bool
}

var _ Service = (*ServiceImpl)(nil)

type ServiceImpl struct {
	logger *slog.Logger
	llm    generativeAI.TextGenerator
	parser Parser
}

func NewService(llm generativeAI.TextGenerator, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{logger: logger, llm: llm, parser: TextParser{}}
}

func (s *ServiceImpl) Available() bool { return s.llm != nil }

// normalize fills request defaults and validates the duration.
func normalize(req *types.ItineraryRequest) error {
	if req.Duration < 1 || req.Duration > MaxDuration {
		return fmt.Errorf("%w: duration must be between 1 and %d days", types.ErrInvalidInput, MaxDuration)
	}
	if req.TravelStyle == "" {
		req.TravelStyle = defaultTravelStyle
	}
	if req.Budget == "" {
		req.Budget = defaultBudget
	}
	if req.GroupSize < 1 {
		req.GroupSize = 1
	}
	return nil
}

func (s *ServiceImpl) Generate(ctx context.Context, req types.ItineraryRequest) ([]types.DayPlan, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "Generate", trace.WithAttributes(
		attribute.Int("itinerary.duration", req.Duration),
		attribute.String("itinerary.budget", req.Budget),
		attribute.String("itinerary.travel_style", req.TravelStyle),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "Generate"))

	if err := normalize(&req); err != nil {
		return nil, err
	}
	if s.llm == nil {
		return nil, fmt.Errorf("%w: itinerary planner has no text model", types.ErrServiceUnavailable)
	}

	reply, err := s.llm.GenerateText(ctx, buildPrompt(req), itineraryTemperature)
	if err != nil {
		l.ErrorContext(ctx, "Itinerary generation failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Generation failed")
		return nil, fmt.Errorf("itinerary generation failed: %w", err)
	}
	l.DebugContext(ctx, "Raw itinerary reply", slog.Int("length", len(reply)))

	days := s.parser.Parse(reply, req.Duration)
	span.SetAttributes(attribute.Int("itinerary.days", len(days)))
	return days, nil
}

func TotalCost(days []types.DayPlan) float64 {
	var total float64
	for _, d := range days {
		total += d.EstimatedCost
	}
	return total
}
