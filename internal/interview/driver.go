package interview

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prism-labs/prism/internal/question"
)

const maxTiers = 3

// Store is the persistence surface the driver needs. Every accepted answer
// is written through before the next question is presented.
type Store interface {
	SetAnswer(profileID, fieldPath string, value any) error
	SaveQuestionSet(id, profileID, section string, set *question.TieredSet) error
	CreateSession(id, profileID, state string) error
	UpdateSessionState(id, state string) error
}

// Transitioner rephrases the next question into a conversational lead-in.
type Transitioner interface {
	Transition(ctx context.Context, nextQuestion, previousAnswer string) (string, error)
}

// Source is one stored question document traversed by the interview.
type Source struct {
	ID      string
	Section string
	Set     *question.TieredSet
}

// Driver walks the tiered question sets turn by turn, collecting answers
// into the profile. Tiers go 1 to 3 in order; within a tier the general
// phase is exhausted before the category phase; no question is skipped or
// repeated.
type Driver struct {
	store       Store
	general     *Source
	category    *Source
	transitions Transitioner
	logger      *zap.Logger

	session    *Session
	lastAnswer string
}

// Config assembles a Driver. Category and Transitions are optional.
type Config struct {
	ProfileID   string
	General     *Source
	Category    *Source
	Store       Store
	Transitions Transitioner
	Logger      *zap.Logger
}

// NewDriver validates the configuration and prepares a not-started session.
func NewDriver(cfg Config) (*Driver, error) {
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.General == nil || cfg.General.Set == nil {
		return nil, errors.New("general question set is required")
	}
	if cfg.ProfileID == "" {
		return nil, errors.New("profile id is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Driver{
		store:       cfg.Store,
		general:     cfg.General,
		category:    cfg.Category,
		transitions: cfg.Transitions,
		logger:      logger,
		session: &Session{
			ID:        uuid.NewString(),
			ProfileID: cfg.ProfileID,
			State:     StateNotStarted,
			Phase:     PhaseGeneral,
		},
	}, nil
}

// Session returns a copy of the current session state.
func (d *Driver) Session() Session {
	return *d.session
}

// Start resumes at the first non-completed tier and returns the first
// question, or nil when the interview is already complete.
func (d *Driver) Start(ctx context.Context) (*Prompt, error) {
	if d.session.State != StateNotStarted {
		return nil, fmt.Errorf("interview already started (state %s)", d.session.State)
	}

	d.resume()

	if err := d.store.CreateSession(d.session.ID, d.session.ProfileID, string(d.session.State)); err != nil {
		return nil, err
	}

	if d.session.State == StateCompleted {
		return nil, nil
	}

	return d.currentPrompt(ctx)
}

// resume finds the first tier whose general document is not completed,
// marking it in-process. All tiers completed means the interview is done.
func (d *Driver) resume() {
	for tier := 1; tier <= maxTiers; tier++ {
		doc, err := d.general.Set.Tier(tier)
		if err != nil {
			continue
		}
		if doc.Status == question.TierCompleted {
			continue
		}

		doc.Status = question.TierInProcess
		d.session.Tier = tier
		d.session.Phase = PhaseGeneral
		d.session.State = StateAwaitingAnswer

		// The general phase of a resumed tier may already be drained.
		d.advancePastEmptyPhases()
		if d.session.State == StateCompleted {
			return
		}

		d.logger.Info("interview resumed",
			zap.Int("tier", d.session.Tier),
			zap.String("phase", string(d.session.Phase)),
		)
		return
	}

	d.session.State = StateCompleted
}

// Submit records the answer for the current question and advances the
// session. It returns the next prompt, or nil when the interview completed.
func (d *Driver) Submit(ctx context.Context, raw string) (*Prompt, error) {
	if d.session.State != StateAwaitingAnswer {
		return nil, fmt.Errorf("no question awaiting an answer (state %s)", d.session.State)
	}

	candidate := d.currentCandidate()
	if candidate == nil {
		return nil, errors.New("no current question")
	}

	value, err := ParseAnswer(candidate.Field, raw)
	if err != nil {
		return nil, err
	}

	// Persist the answer before anything else: an abort right after this
	// point must not lose it.
	if err := d.store.SetAnswer(d.session.ProfileID, candidate.Field.Name, value); err != nil {
		return nil, err
	}

	candidate.Status = question.StatusAnswered
	d.lastAnswer = raw

	if err := d.persistSets(); err != nil {
		return nil, err
	}

	d.logger.Info("answer recorded",
		zap.String("field", candidate.Field.Name),
		zap.Int("tier", d.session.Tier),
		zap.String("phase", string(d.session.Phase)),
	)

	d.advance()

	if d.session.State == StateCompleted {
		if err := d.persistSets(); err != nil {
			return nil, err
		}
		if err := d.store.UpdateSessionState(d.session.ID, string(StateCompleted)); err != nil {
			return nil, err
		}
		return nil, nil
	}

	return d.currentPrompt(ctx)
}

// Abort ends the session keeping every answer given so far.
func (d *Driver) Abort(ctx context.Context) error {
	_ = ctx

	if d.session.State == StateCompleted || d.session.State == StateAborted {
		return nil
	}

	d.session.State = StateAborted

	if err := d.persistSets(); err != nil {
		return err
	}

	return d.store.UpdateSessionState(d.session.ID, string(StateAborted))
}

// Done reports whether the interview reached a terminal state.
func (d *Driver) Done() bool {
	return d.session.State == StateCompleted || d.session.State == StateAborted
}

func (d *Driver) currentSource() *Source {
	if d.session.Phase == PhaseCategory {
		return d.category
	}
	return d.general
}

func (d *Driver) currentCandidate() *question.Candidate {
	source := d.currentSource()
	if source == nil || source.Set == nil {
		return nil
	}

	doc, err := source.Set.Tier(d.session.Tier)
	if err != nil {
		return nil
	}

	pending := doc.Pending()
	if len(pending) == 0 {
		return nil
	}
	return pending[0]
}

func (d *Driver) currentPrompt(ctx context.Context) (*Prompt, error) {
	candidate := d.currentCandidate()
	if candidate == nil {
		return nil, errors.New("no current question")
	}

	if d.session.wasAsked(candidate.Field.Name) {
		return nil, fmt.Errorf("question for %s was already presented", candidate.Field.Name)
	}
	d.session.markAsked(candidate.Field.Name)

	prompt := &Prompt{
		Tier:  d.session.Tier,
		Phase: d.session.Phase,
		Field: candidate.Field,
		Text:  candidate.Text,
		Lead:  candidate.Text,
	}

	// Only follow-up questions get a conversational transition.
	if d.transitions != nil && d.lastAnswer != "" {
		lead, err := d.transitions.Transition(ctx, candidate.Text, d.lastAnswer)
		if err != nil {
			d.logger.Debug("transition generation failed, using plain question", zap.Error(err))
		} else if lead != "" {
			prompt.Lead = lead
		}
	}

	return prompt, nil
}

// advance moves the cursor to the next pending question, switching phase
// and tier as documents drain.
func (d *Driver) advance() {
	if d.currentCandidate() != nil {
		return
	}
	d.advancePastEmptyPhases()
}

func (d *Driver) advancePastEmptyPhases() {
	for {
		if d.currentCandidate() != nil {
			return
		}

		if d.session.Phase == PhaseGeneral && d.hasCategory() {
			d.session.Phase = PhaseCategory
			continue
		}

		d.completeTier()

		if d.session.Tier >= maxTiers {
			d.session.State = StateCompleted
			return
		}

		d.session.Tier++
		d.session.Phase = PhaseGeneral
		if doc, err := d.general.Set.Tier(d.session.Tier); err == nil {
			doc.Status = question.TierInProcess
		}
	}
}

func (d *Driver) hasCategory() bool {
	return d.category != nil && d.category.Set != nil
}

func (d *Driver) completeTier() {
	if doc, err := d.general.Set.Tier(d.session.Tier); err == nil {
		doc.Status = question.TierCompleted
	}
	if d.hasCategory() {
		if doc, err := d.category.Set.Tier(d.session.Tier); err == nil {
			doc.Status = question.TierCompleted
		}
	}
}

func (d *Driver) persistSets() error {
	if err := d.store.SaveQuestionSet(d.general.ID, d.session.ProfileID, d.general.Section, d.general.Set); err != nil {
		return err
	}
	if d.hasCategory() {
		if err := d.store.SaveQuestionSet(d.category.ID, d.session.ProfileID, d.category.Section, d.category.Set); err != nil {
			return err
		}
	}
	return nil
}
