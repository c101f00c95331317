package query

import (
	"context"
	"strings"

	"github.com/housepoints/house-points-hub/internal/domain/ledger"
	"github.com/housepoints/house-points-hub/internal/domain/shared"
	"github.com/housepoints/house-points-hub/internal/domain/student"
	"github.com/housepoints/house-points-hub/pkg/logger"
	"github.com/housepoints/house-points-hub/pkg/retry"
)

// SuggestHouseQuery describes the student to place.
type SuggestHouseQuery struct {
	FirstName string
	LastName  string `validate:"required"`
	Grade     string
	Homeroom  string
}

// Validate validates the query.
func (q SuggestHouseQuery) Validate() error {
	return shared.ValidateStruct("advisor", "Suggest", q)
}

// SuggestHouseHandler runs the house assignment advisor against the ledger.
type SuggestHouseHandler struct {
	store   ledger.Reader
	advisor *student.Advisor
	retrier *retry.Retrier
	log     *logger.Logger
}

// NewSuggestHouseHandler creates a new SuggestHouseHandler.
func NewSuggestHouseHandler(store ledger.Reader, advisor *student.Advisor, log *logger.Logger) *SuggestHouseHandler {
	return &SuggestHouseHandler{
		store:   store,
		advisor: advisor,
		retrier: retry.ReadRetrier(),
		log:     log.WithComponent("query.suggest_house"),
	}
}

type advisorInput struct {
	loads    []student.HouseLoad
	siblings []student.Profile
}

// Handle returns a suggestion. "No suggestion" is a result, not an error.
func (h *SuggestHouseHandler) Handle(ctx context.Context, q SuggestHouseQuery) (*student.Suggestion, error) {
	q.LastName = strings.TrimSpace(q.LastName)
	if err := q.Validate(); err != nil {
		return nil, err
	}

	in, err := retry.DoWithData(ctx, h.retrier, func(ctx context.Context) (advisorInput, error) {
		houses, err := h.store.ListHouses(ctx)
		if err != nil {
			return advisorInput{}, err
		}
		counts, err := h.store.CountStudentsByHouse(ctx)
		if err != nil {
			return advisorInput{}, err
		}
		siblings, err := h.store.FindStudentsByLastName(ctx, q.LastName)
		if err != nil {
			return advisorInput{}, err
		}

		loads := make([]student.HouseLoad, len(houses))
		for i, hs := range houses {
			loads[i] = student.HouseLoad{House: hs, Students: counts[hs.ID]}
		}
		return advisorInput{loads: loads, siblings: siblings}, nil
	})
	if err != nil {
		return nil, err
	}

	s := h.advisor.Suggest(student.AdviceRequest{
		FirstName: strings.TrimSpace(q.FirstName),
		LastName:  q.LastName,
		Grade:     q.Grade,
		Homeroom:  q.Homeroom,
	}, in.loads, in.siblings)

	h.log.Debug("house suggested",
		logger.String("rule", string(s.Rule)),
		logger.String("house", s.HouseName),
		logger.Int("siblings", len(s.Siblings)),
	)
	return &s, nil
}
