package postgres

import (
	"testing"
	"time"

	"github.com/venturelink/deal-service/internal/domain"
)

func milestoneRow(status string) milestoneModel {
	contractID := "contract-1"
	return milestoneModel{
		MilestoneID:  "ms-1",
		ContractID:   &contractID,
		Title:        "Wireframes",
		DueAt:        time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
		Price:        400,
		Status:       status,
		Deliverables: `[{"name":"wireframes","file_url":"https://files.example/wireframes.pdf"}]`,
		Position:     1,
	}
}

func TestMilestoneRowMapsToDomain(t *testing.T) {
	t.Parallel()

	m, err := toDomainMilestone(milestoneRow("held"))
	if err != nil {
		t.Fatalf("toDomainMilestone: %v", err)
	}
	if m.Status != domain.MilestoneStatusHeld {
		t.Fatalf("status = %q, want held", m.Status)
	}
	if m.ContractID != "contract-1" {
		t.Fatalf("contract_id = %q, want contract-1", m.ContractID)
	}
	if len(m.Deliverables) != 1 || m.Deliverables[0].FileURL != "https://files.example/wireframes.pdf" {
		t.Fatalf("deliverables not decoded: %+v", m.Deliverables)
	}
}

func TestMilestoneRowRejectsUnknownStatus(t *testing.T) {
	t.Parallel()

	for _, status := range []string{"", "pending", "HELD", "escrowed"} {
		if _, err := toDomainMilestone(milestoneRow(status)); err == nil {
			t.Fatalf("status %q: expected an error, got none", status)
		}
	}
}

func TestMilestoneRowAcceptsEveryKnownStatus(t *testing.T) {
	t.Parallel()

	for _, status := range []domain.MilestoneStatus{
		domain.MilestoneStatusNotFunded,
		domain.MilestoneStatusHeld,
		domain.MilestoneStatusInReview,
		domain.MilestoneStatusReleased,
		domain.MilestoneStatusDisputed,
	} {
		m, err := toDomainMilestone(milestoneRow(string(status)))
		if err != nil {
			t.Fatalf("status %q: %v", status, err)
		}
		if m.Status != status {
			t.Fatalf("status round-trip: got %q, want %q", m.Status, status)
		}
	}
}
