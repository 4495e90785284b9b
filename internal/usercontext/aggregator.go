// Package usercontext assembles the personalization bundle for one chat
// turn: learner preferences, academic profile and the recent conversation
// window. The three lookups run concurrently under a single deadline and
// the aggregate never fails; whatever is missing when the deadline hits is
// simply absent from the result.
package usercontext

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"course-tutor/internal/config"
	"course-tutor/internal/models"
)

// Store provides the three personalization reads. *db.LearnerRepo implements
// it.
type Store interface {
	Preferences(ctx context.Context, userID, courseID uuid.UUID) (*models.LearnerPreferences, error)
	AcademicProfile(ctx context.Context, userID uuid.UUID) (*models.AcademicProfile, error)
	RecentHistory(ctx context.Context, courseID uuid.UUID, n int) ([]models.ChatMessage, error)
}

type Aggregator struct {
	store Store
	cfg   config.ContextConfig
	log   zerolog.Logger
}

func NewAggregator(store Store, cfg config.ContextConfig, log zerolog.Logger) *Aggregator {
	return &Aggregator{
		store: store,
		cfg:   cfg,
		log:   log.With().Str("component", "usercontext").Logger(),
	}
}

type prefResult struct {
	value *models.LearnerPreferences
	err   error
}

type profileResult struct {
	value *models.AcademicProfile
	err   error
}

type historyResult struct {
	value []models.ChatMessage
	err   error
}

// Get fetches the user context. It returns within the configured deadline
// with whichever sub-fetches completed; stragglers are abandoned and their
// late results discarded. Sub-fetch failures are absorbed and logged, so the
// worst case is an empty but valid context.
func (a *Aggregator) Get(ctx context.Context, userID, courseID uuid.UUID) models.UserContext {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout())
	defer cancel()

	// Buffered so abandoned fetches can still send and exit.
	prefCh := make(chan prefResult, 1)
	profileCh := make(chan profileResult, 1)
	historyCh := make(chan historyResult, 1)

	go func() {
		defer a.recoverFetch("preferences")
		v, err := a.store.Preferences(ctx, userID, courseID)
		prefCh <- prefResult{value: v, err: err}
	}()
	go func() {
		defer a.recoverFetch("academic_profile")
		v, err := a.store.AcademicProfile(ctx, userID)
		profileCh <- profileResult{value: v, err: err}
	}()
	go func() {
		defer a.recoverFetch("history")
		v, err := a.store.RecentHistory(ctx, courseID, a.cfg.HistoryWindow)
		historyCh <- historyResult{value: v, err: err}
	}()

	var uc models.UserContext
	for pending := 3; pending > 0; pending-- {
		select {
		case res := <-prefCh:
			if res.err != nil {
				a.warn("preferences", userID, courseID, res.err)
				continue
			}
			uc.Preferences = res.value
		case res := <-profileCh:
			if res.err != nil {
				a.warn("academic_profile", userID, courseID, res.err)
				continue
			}
			uc.Profile = res.value
		case res := <-historyCh:
			if res.err != nil {
				a.warn("history", userID, courseID, res.err)
				continue
			}
			uc.History = res.value
		case <-ctx.Done():
			a.log.Warn().
				Stringer("user_id", userID).
				Stringer("course_id", courseID).
				Int("pending_fetches", pending).
				Msg("context deadline elapsed, returning partial context")
			return uc
		}
	}
	return uc
}

func (a *Aggregator) warn(fetch string, userID, courseID uuid.UUID, err error) {
	a.log.Warn().
		Err(err).
		Str("fetch", fetch).
		Stringer("user_id", userID).
		Stringer("course_id", courseID).
		Msg("context fetch failed, field will be absent")
}

// recoverFetch keeps a panicking sub-fetch from taking down the chat turn;
// its channel simply never delivers and the field stays absent.
func (a *Aggregator) recoverFetch(fetch string) {
	if r := recover(); r != nil {
		a.log.Error().Str("fetch", fetch).Interface("panic", r).Msg("context fetch panicked")
	}
}
