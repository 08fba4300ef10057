package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/venturelink/deal-service/internal/domain"
)

// AccessDecision is the outcome of an access check against an NDA-gated
// subject. When the gate blocks, the caller's intent is parked and the
// decision carries the agreement challenge instead of the content.
type AccessDecision struct {
	Granted      bool                 `json:"granted"`
	NDAChallenge bool                 `json:"nda_challenge"`
	Intent       *domain.ParkedIntent `json:"intent,omitempty"`
}

// AcceptNDAResult returns the signed record plus the resumed intent, if one
// was parked for this viewer.
type AcceptNDAResult struct {
	Record domain.NDARecord     `json:"record"`
	Resume *domain.ParkedIntent `json:"resume,omitempty"`
}

// SetNDARequirement lets a subject owner toggle the gate. First write wins
// the ownership; later writes must come from the same owner.
func (s *Service) SetNDARequirement(ctx context.Context, actor Actor, input SetNDARequirementInput) (domain.NDASetting, error) {
	if err := requireActor(actor); err != nil {
		return domain.NDASetting{}, err
	}
	subjectID := strings.TrimSpace(input.SubjectID)
	if subjectID == "" {
		return domain.NDASetting{}, domain.NewValidationError(domain.FieldViolation{Field: "subject_id", Reason: "must not be empty"})
	}
	existing, err := s.ndaSettings.Get(ctx, subjectID)
	switch {
	case err == nil:
		if existing.OwnerID != actor.SubjectID {
			return domain.NDASetting{}, fmt.Errorf("%w: only the owner may change the nda requirement", domain.ErrPermissionDenied)
		}
	case errors.Is(err, domain.ErrNotFound):
		// first write claims ownership
	default:
		return domain.NDASetting{}, err
	}

	setting := domain.NDASetting{
		SubjectID:   subjectID,
		OwnerID:     actor.SubjectID,
		NDARequired: input.NDARequired,
		UpdatedAt:   s.nowFn(),
	}
	if err := s.ndaSettings.Upsert(ctx, setting); err != nil {
		return domain.NDASetting{}, err
	}
	return setting, nil
}

// RequestAccess runs the gate for a viewer. With no requirement, or with a
// signed record on file, access is granted immediately. Otherwise the
// original intent is parked and the viewer gets the agreement challenge.
// The owner is never challenged on their own subject.
func (s *Service) RequestAccess(ctx context.Context, actor Actor, input AccessRequestInput) (AccessDecision, error) {
	if err := requireActor(actor); err != nil {
		return AccessDecision{}, err
	}
	subjectID := strings.TrimSpace(input.SubjectID)
	if subjectID == "" {
		return AccessDecision{}, domain.NewValidationError(domain.FieldViolation{Field: "subject_id", Reason: "must not be empty"})
	}

	setting, err := s.ndaSettings.Get(ctx, subjectID)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && !setting.NDARequired) {
		return AccessDecision{Granted: true}, nil
	}
	if err != nil {
		return AccessDecision{}, err
	}
	if setting.OwnerID == actor.SubjectID {
		return AccessDecision{Granted: true}, nil
	}
	if _, err := s.ndaRecords.Get(ctx, subjectID, actor.SubjectID); err == nil {
		return AccessDecision{Granted: true}, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return AccessDecision{}, err
	}

	intent := domain.ParkedIntent{
		SubjectID: subjectID,
		ViewerID:  actor.SubjectID,
		Action:    strings.TrimSpace(input.Action),
		TargetID:  strings.TrimSpace(input.TargetID),
		ParkedAt:  s.nowFn(),
	}
	if err := s.intents.Park(ctx, intent, s.cfg.IntentTTL); err != nil {
		return AccessDecision{}, err
	}
	return AccessDecision{NDAChallenge: true, Intent: &intent}, nil
}

// AcceptNDA records the agreement and resumes the parked intent. The record
// write happens before the intent is taken, so a crash between the two
// leaves a signed viewer whose next access passes the gate directly.
func (s *Service) AcceptNDA(ctx context.Context, actor Actor, subjectID, documentURL string) (AcceptNDAResult, error) {
	if err := requireActor(actor); err != nil {
		return AcceptNDAResult{}, err
	}
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return AcceptNDAResult{}, domain.NewValidationError(domain.FieldViolation{Field: "subject_id", Reason: "must not be empty"})
	}
	if _, err := s.ndaSettings.Get(ctx, subjectID); err != nil {
		return AcceptNDAResult{}, err
	}

	now := s.nowFn()
	record := domain.NDARecord{
		NDARecordID: uuid.NewString(),
		SubjectID:   subjectID,
		ViewerID:    actor.SubjectID,
		DocumentURL: strings.TrimSpace(documentURL),
		AcceptedAt:  now,
	}
	if err := s.ndaRecords.Create(ctx, record); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			existing, getErr := s.ndaRecords.Get(ctx, subjectID, actor.SubjectID)
			if getErr != nil {
				return AcceptNDAResult{}, getErr
			}
			record = existing
		} else {
			return AcceptNDAResult{}, err
		}
	}

	if err := s.enqueueTransition(ctx, domain.EventNDAAccepted, domain.TransitionEvent{
		ActorID:    actor.SubjectID,
		Action:     "accept_nda",
		EntityType: domain.EntityTypeNDA,
		EntityID:   record.NDARecordID,
		ToStatus:   "accepted",
		Message:    domain.HumanMessage(domain.EventNDAAccepted, subjectID, 0),
		OccurredAt: now,
	}); err != nil {
		return AcceptNDAResult{}, err
	}

	result := AcceptNDAResult{Record: record}
	intent, found, err := s.intents.Take(ctx, subjectID, actor.SubjectID)
	if err != nil {
		slog.Default().WarnContext(ctx, "parked intent lookup failed",
			"module", "application",
			"layer", "application",
			"operation", "accept_nda",
			"outcome", "failure",
			"subject_id", subjectID,
			"error", err,
		)
	} else if found {
		result.Resume = &intent
	}
	return result, nil
}

// DeclineNDA drops the parked intent and records nothing; the viewer can
// come back through the gate later with a clean slate.
func (s *Service) DeclineNDA(ctx context.Context, actor Actor, subjectID string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return domain.NewValidationError(domain.FieldViolation{Field: "subject_id", Reason: "must not be empty"})
	}
	return s.intents.Drop(ctx, subjectID, actor.SubjectID)
}

// requireNDARecord is the inline form of the gate used by operations that
// cannot park an intent, such as accepting an NDA-flagged invitation.
func (s *Service) requireNDARecord(ctx context.Context, subjectID, viewerID string) error {
	setting, err := s.ndaSettings.Get(ctx, subjectID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !setting.NDARequired || setting.OwnerID == viewerID {
		return nil
	}
	if _, err := s.ndaRecords.Get(ctx, subjectID, viewerID); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: agreement required before accessing %s", domain.ErrNDARequired, subjectID)
}
