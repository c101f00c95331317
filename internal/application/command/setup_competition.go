package command

import (
	"context"
	"time"

	"github.com/housepoints/house-points-hub/internal/domain/house"
	"github.com/housepoints/house-points-hub/internal/domain/ledger"
	"github.com/housepoints/house-points-hub/internal/domain/student"
	"github.com/housepoints/house-points-hub/pkg/logger"
	"github.com/housepoints/house-points-hub/pkg/timeutil"
)

// SetupCompetitionCommand seeds reference data. SeniorGradYear of 0 derives
// the senior class from the current school year.
type SetupCompetitionCommand struct {
	SeniorGradYear int
	Houses         []house.House
}

// SetupCompetitionResult reports what was seeded. Nothing is seeded into a
// table that already has rows.
type SetupCompetitionResult struct {
	HousesCreated     []house.House
	ClassYearsCreated []student.ClassYear
}

// AlreadySetUp reports whether the call was a no-op.
func (r *SetupCompetitionResult) AlreadySetUp() bool {
	return len(r.HousesCreated) == 0 && len(r.ClassYearsCreated) == 0
}

// SetupCompetitionHandler handles SetupCompetitionCommand.
type SetupCompetitionHandler struct {
	store ledger.Store
	clock timeutil.Clock
	log   *logger.Logger
}

// NewSetupCompetitionHandler creates a new SetupCompetitionHandler.
func NewSetupCompetitionHandler(store ledger.Store, clock timeutil.Clock, log *logger.Logger) *SetupCompetitionHandler {
	return &SetupCompetitionHandler{store: store, clock: clock, log: log.WithComponent("command.setup")}
}

// Handle seeds the houses and the four class years if their tables are empty.
func (h *SetupCompetitionHandler) Handle(ctx context.Context, cmd SetupCompetitionCommand) (*SetupCompetitionResult, error) {
	houses := cmd.Houses
	if len(houses) == 0 {
		houses = house.Defaults()
	}
	seniorYear := cmd.SeniorGradYear
	if seniorYear == 0 {
		seniorYear = SeniorGradYear(h.clock.Now())
	}

	res := &SetupCompetitionResult{}
	err := h.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		res.HousesCreated, res.ClassYearsCreated = nil, nil

		existing, err := tx.ListHouses(ctx)
		if err != nil {
			return err
		}
		if len(existing) == 0 {
			for _, hs := range houses {
				if err := tx.InsertHouse(ctx, &hs); err != nil {
					return err
				}
				res.HousesCreated = append(res.HousesCreated, hs)
			}
		}

		years, err := tx.ListClassYears(ctx)
		if err != nil {
			return err
		}
		if len(years) == 0 {
			for _, y := range student.DefaultClassYears(seniorYear) {
				if err := tx.InsertClassYear(ctx, &y); err != nil {
					return err
				}
				res.ClassYearsCreated = append(res.ClassYearsCreated, y)
			}
		}
		return nil
	})
	if err != nil {
		h.log.Error("setup failed", logger.Err(err))
		return nil, err
	}

	h.log.Info("competition set up",
		logger.Int("houses_created", len(res.HousesCreated)),
		logger.Int("class_years_created", len(res.ClassYearsCreated)),
		logger.Int("senior_grad_year", seniorYear),
	)
	return res, nil
}

// SeniorGradYear returns the graduation year of the current senior class.
// The school year turns over on July 1.
func SeniorGradYear(now time.Time) int {
	if now.Month() >= time.July {
		return now.Year() + 1
	}
	return now.Year()
}
