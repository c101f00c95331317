package command

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/housepoints/house-points-hub/internal/domain/ledger"
	"github.com/housepoints/house-points-hub/internal/domain/shared"
	"github.com/housepoints/house-points-hub/internal/domain/student"
	"github.com/housepoints/house-points-hub/pkg/logger"
	"github.com/housepoints/house-points-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// SEASON ROLLOVER COMMAND
// Year-end reset: graduates the senior class, clears the event ledger and
// advances every class year. Irreversible once committed.
// ══════════════════════════════════════════════════════════════════════════════

// ConfirmationToken must be passed verbatim to run a rollover.
const ConfirmationToken = "RESET"

// RolloverLockKey names the lock that serializes rollovers across processes.
const RolloverLockKey = "season-rollover"

// SeasonRolloverCommand contains the operator's confirmation.
type SeasonRolloverCommand struct {
	Confirmation string
}

// Validate validates the command.
func (c SeasonRolloverCommand) Validate() error {
	if c.Confirmation != ConfirmationToken {
		return shared.ErrRolloverCancelled
	}
	return nil
}

// SeasonRolloverResult describes what the rollover changed.
type SeasonRolloverResult struct {
	RunID           string
	GraduatedClass  student.ClassYear
	StudentsRemoved int
	ResultsRemoved  int
	EventsRemoved   int
	ClassYears      []student.ClassYear // after promotion, by display order
	StartedAt       time.Time
	CompletedAt     time.Time
}

// SeasonRolloverHandler handles SeasonRolloverCommand.
type SeasonRolloverHandler struct {
	store   ledger.Store
	locker  shared.Locker
	clock   timeutil.Clock
	lockTTL time.Duration
	log     *logger.Logger
}

// NewSeasonRolloverHandler creates a new SeasonRolloverHandler.
func NewSeasonRolloverHandler(
	store ledger.Store,
	locker shared.Locker,
	clock timeutil.Clock,
	lockTTL time.Duration,
	log *logger.Logger,
) *SeasonRolloverHandler {
	if lockTTL <= 0 {
		lockTTL = 2 * time.Minute
	}
	return &SeasonRolloverHandler{
		store:   store,
		locker:  locker,
		clock:   clock,
		lockTTL: lockTTL,
		log:     log.WithComponent("command.season_rollover"),
	}
}

// Handle runs the rollover. A wrong token mutates nothing. Every step runs in
// one transaction, so any failure leaves the ledger exactly as it was.
func (h *SeasonRolloverHandler) Handle(ctx context.Context, cmd SeasonRolloverCommand) (*SeasonRolloverResult, error) {
	if err := cmd.Validate(); err != nil {
		h.log.Warn("rollover cancelled: bad confirmation token")
		return nil, err
	}

	runID := uuid.NewString()
	log := h.log.With(logger.RunID(runID))

	unlock, err := h.locker.TryAcquire(ctx, RolloverLockKey, h.lockTTL)
	if err != nil {
		if shared.IsConcurrentModification(err) {
			log.Warn("rollover already running elsewhere")
			return nil, shared.ErrRolloverInProgress
		}
		return nil, err
	}
	defer func() {
		if err := unlock.Release(context.WithoutCancel(ctx)); err != nil {
			log.Warn("failed to release rollover lock", logger.Err(err))
		}
	}()

	res := &SeasonRolloverResult{RunID: runID, StartedAt: h.clock.Now()}
	log.Info("rollover started")

	err = h.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		return rollover(ctx, tx, res)
	})
	if err != nil {
		log.Error("rollover rolled back", logger.Err(err))
		return nil, err
	}

	res.CompletedAt = h.clock.Now()
	log.Info("rollover completed",
		logger.ClassYearID(res.GraduatedClass.ID),
		logger.Int("students_removed", res.StudentsRemoved),
		logger.Int("events_removed", res.EventsRemoved),
		logger.Int("results_removed", res.ResultsRemoved),
	)
	return res, nil
}

func rollover(ctx context.Context, tx ledger.Tx, res *SeasonRolloverResult) error {
	years, err := tx.ListClassYears(ctx)
	if err != nil {
		return err
	}
	senior, ok := student.Senior(years)
	if !ok {
		if len(years) == 0 {
			return shared.Validationf("rollover", "Execute", "no class years defined")
		}
		return shared.Validationf("rollover", "Execute",
			"graduation year %d is shared by several class years; senior class is ambiguous", senior.GraduationYear)
	}
	res.GraduatedClass = senior

	if res.StudentsRemoved, err = tx.DeleteStudentsInClassYear(ctx, senior.ID); err != nil {
		return err
	}
	if res.ResultsRemoved, err = tx.DeleteAllResults(ctx); err != nil {
		return err
	}
	if res.EventsRemoved, err = tx.DeleteAllEvents(ctx); err != nil {
		return err
	}

	res.ClassYears = make([]student.ClassYear, 0, len(years))
	for _, y := range years {
		next := y.Promote()
		if err := tx.UpdateClassYear(ctx, next); err != nil {
			return err
		}
		res.ClassYears = append(res.ClassYears, next)
	}
	return nil
}
