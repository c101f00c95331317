package query

import (
	"context"
	"strings"

	"github.com/housepoints/house-points-hub/internal/domain/event"
	"github.com/housepoints/house-points-hub/internal/domain/house"
	"github.com/housepoints/house-points-hub/internal/domain/ledger"
	"github.com/housepoints/house-points-hub/internal/domain/shared"
	"github.com/housepoints/house-points-hub/internal/domain/student"
	"github.com/housepoints/house-points-hub/pkg/logger"
	"github.com/housepoints/house-points-hub/pkg/retry"
)

// DefaultRecentEvents is the page size of RecentEvents when limit <= 0.
const DefaultRecentEvents = 10

// DirectoryHandler serves plain lookups of students, events and reference
// data.
type DirectoryHandler struct {
	store   ledger.Reader
	retrier *retry.Retrier
	log     *logger.Logger
}

// NewDirectoryHandler creates a new DirectoryHandler.
func NewDirectoryHandler(store ledger.Reader, log *logger.Logger) *DirectoryHandler {
	return &DirectoryHandler{
		store:   store,
		retrier: retry.ReadRetrier(),
		log:     log.WithComponent("query.directory"),
	}
}

// ListHouses returns all houses by name.
func (h *DirectoryHandler) ListHouses(ctx context.Context) ([]house.House, error) {
	return retry.DoWithData(ctx, h.retrier, h.store.ListHouses)
}

// ListClassYears returns all class years by display order.
func (h *DirectoryHandler) ListClassYears(ctx context.Context) ([]student.ClassYear, error) {
	return retry.DoWithData(ctx, h.retrier, h.store.ListClassYears)
}

// ListStudents returns every student ordered by house name, class display
// order, last name, first name.
func (h *DirectoryHandler) ListStudents(ctx context.Context) ([]student.Profile, error) {
	return retry.DoWithData(ctx, h.retrier, h.store.ListStudents)
}

// SearchStudents matches term against first, last and full name and email.
func (h *DirectoryHandler) SearchStudents(ctx context.Context, term string) ([]student.Profile, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, shared.Validationf("student", "Search", "search term must not be empty")
	}
	out, err := retry.DoWithData(ctx, h.retrier, func(ctx context.Context) ([]student.Profile, error) {
		return h.store.SearchStudents(ctx, term)
	})
	if err != nil {
		return nil, err
	}
	h.log.Debug("students searched", logger.String("term", term), logger.Int("matches", len(out)))
	return out, nil
}

// GetStudent returns one student. A missing student is a NotFoundError.
func (h *DirectoryHandler) GetStudent(ctx context.Context, id int64) (student.Profile, error) {
	return retry.DoWithData(ctx, h.retrier, func(ctx context.Context) (student.Profile, error) {
		return h.store.FindStudent(ctx, id)
	})
}

// ListEvents returns every event, newest first, with its participant count.
func (h *DirectoryHandler) ListEvents(ctx context.Context) ([]event.Summary, error) {
	return h.listEvents(ctx, 0)
}

// RecentEvents returns the newest events.
func (h *DirectoryHandler) RecentEvents(ctx context.Context, limit int) ([]event.Summary, error) {
	if limit <= 0 {
		limit = DefaultRecentEvents
	}
	return h.listEvents(ctx, limit)
}

func (h *DirectoryHandler) listEvents(ctx context.Context, limit int) ([]event.Summary, error) {
	return retry.DoWithData(ctx, h.retrier, func(ctx context.Context) ([]event.Summary, error) {
		return h.store.ListEvents(ctx, limit)
	})
}

// GetEvent returns an event with its results by rank.
func (h *DirectoryHandler) GetEvent(ctx context.Context, id int64) (event.Event, error) {
	return retry.DoWithData(ctx, h.retrier, func(ctx context.Context) (event.Event, error) {
		return h.store.FindEvent(ctx, id)
	})
}
