package product

import (
	"testing"
	"time"
)

func TestComputeStatus_DraftAlwaysWins(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -10)
	future := now.AddDate(0, 0, 10)

	for _, expires := range []*time.Time{nil, &past, &future} {
		status := ComputeStatus(StateDraft, expires, now)
		if status.Code != StatusDraft {
			t.Fatalf("draft with expiry %v: got %s", expires, status.Code)
		}
	}
}

func TestComputeStatus_NilExpiry(t *testing.T) {
	now := time.Now()
	status := ComputeStatus(StatePublished, nil, now)
	if status.Code != StatusNoExpiry {
		t.Fatalf("expected sin_expirar, got %s", status.Code)
	}
}

func TestComputeStatus_Published(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		expiresIn     time.Duration
		wantCode      StatusCode
		wantRemaining int
		wantOverdue   int
	}{
		{"expired yesterday", -24 * time.Hour, StatusExpired, 0, 1},
		{"expired three days ago", -72 * time.Hour, StatusExpired, 0, 3},
		{"expires right now", 0, StatusExpiring, 0, 0},
		{"expires in three days", 72 * time.Hour, StatusExpiring, 3, 0},
		{"expires in seven days", 7 * 24 * time.Hour, StatusExpiring, 7, 0},
		{"expires in ten days", 10 * 24 * time.Hour, StatusActive, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expires := now.Add(tt.expiresIn)
			status := ComputeStatus(StatePublished, &expires, now)
			if status.Code != tt.wantCode {
				t.Fatalf("code: got %s, want %s", status.Code, tt.wantCode)
			}
			if status.DaysRemaining != tt.wantRemaining {
				t.Fatalf("days remaining: got %d, want %d", status.DaysRemaining, tt.wantRemaining)
			}
			if status.DaysOverdue != tt.wantOverdue {
				t.Fatalf("days overdue: got %d, want %d", status.DaysOverdue, tt.wantOverdue)
			}
		})
	}
}

func TestComputeStatus_ThirtyDayWindow(t *testing.T) {
	publishedAt := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	expires := publishedAt.AddDate(0, 0, 30)

	// 25 days in: 5 days remaining, inside the warning window.
	status := ComputeStatus(StatePublished, &expires, publishedAt.AddDate(0, 0, 25))
	if status.Code != StatusExpiring || status.DaysRemaining != 5 {
		t.Fatalf("day 25: got %s remaining=%d", status.Code, status.DaysRemaining)
	}

	// 31 days in: 1 day overdue.
	status = ComputeStatus(StatePublished, &expires, publishedAt.AddDate(0, 0, 31))
	if status.Code != StatusExpired || status.DaysOverdue != 1 {
		t.Fatalf("day 31: got %s overdue=%d", status.Code, status.DaysOverdue)
	}
}

func TestComputeStatus_Labels(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	oneDayAgo := now.Add(-24 * time.Hour)
	if got := ComputeStatus(StatePublished, &oneDayAgo, now).Label; got != "Vencido (1 día)" {
		t.Fatalf("overdue label: %q", got)
	}

	threeDays := now.Add(72 * time.Hour)
	if got := ComputeStatus(StatePublished, &threeDays, now).Label; got != "Por vencer (3 días)" {
		t.Fatalf("expiring label: %q", got)
	}

	today := now.Add(time.Hour)
	if got := ComputeStatus(StatePublished, &today, now).Label; got != "Por vencer (hoy)" {
		t.Fatalf("today label: %q", got)
	}
}

func TestProduct_Duration(t *testing.T) {
	if got := (Product{}).Duration(); got != DefaultUsageDurationDays {
		t.Fatalf("zero duration: got %d", got)
	}
	if got := (Product{UsageDurationDays: 45}).Duration(); got != 45 {
		t.Fatalf("explicit duration: got %d", got)
	}
}
