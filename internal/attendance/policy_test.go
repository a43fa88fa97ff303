package attendance

import (
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

func TestPolicy_Boundary(t *testing.T) {
	const cooldown = int64(5 * 60 * 1000)
	p := NewPolicy(cooldown)
	last := &database.AttendanceRecord{IdentityID: 1, Timestamp: 1_700_000_000_000}

	tests := []struct {
		name      string
		now       int64
		allowed   bool
		remaining int64
	}{
		{"same instant", last.Timestamp, false, cooldown},
		{"one ms before end", last.Timestamp + cooldown - 1, false, 1},
		{"exactly at end", last.Timestamp + cooldown, true, 0},
		{"well after", last.Timestamp + 10*cooldown, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := p.Evaluate(tt.now, last)
			if d.Allowed != tt.allowed {
				t.Errorf("Allowed = %v, want %v", d.Allowed, tt.allowed)
			}
			if d.Remaining != tt.remaining {
				t.Errorf("Remaining = %d, want %d", d.Remaining, tt.remaining)
			}
		})
	}
}

func TestPolicy_NoPriorRecord(t *testing.T) {
	p := NewPolicy(3000)
	if d := p.Evaluate(0, nil); !d.Allowed {
		t.Error("first mark must be allowed")
	}
}

func TestPolicy_ZeroCooldown(t *testing.T) {
	p := NewPolicy(0)
	last := &database.AttendanceRecord{Timestamp: 1000}
	if d := p.Evaluate(1000, last); !d.Allowed {
		t.Error("zero cooldown must allow immediate marks")
	}
	if NewPolicy(-5).Cooldown() != 0 {
		t.Error("negative cooldown should clamp to zero")
	}
}

func TestPolicy_RecordInFuture(t *testing.T) {
	p := NewPolicy(3000)
	last := &database.AttendanceRecord{Timestamp: 10_000}
	d := p.Evaluate(9_000, last)
	if d.Allowed {
		t.Error("record in the future should still block")
	}
	if d.Remaining != 4000 {
		t.Errorf("Remaining = %d, want 4000", d.Remaining)
	}
}

func TestDecision_RetryAfter(t *testing.T) {
	tests := []struct {
		remaining int64
		seconds   int64
	}{
		{0, 0},
		{1, 1},
		{999, 1},
		{1000, 1},
		{1001, 2},
		{299_999, 300},
	}
	for _, tt := range tests {
		d := Decision{Remaining: tt.remaining}
		if got := d.RetryAfterSeconds(); got != tt.seconds {
			t.Errorf("RetryAfterSeconds(%d) = %d, want %d", tt.remaining, got, tt.seconds)
		}
		if got := d.RetryAfter(); got != time.Duration(tt.remaining)*time.Millisecond {
			t.Errorf("RetryAfter(%d) = %v", tt.remaining, got)
		}
	}
}
