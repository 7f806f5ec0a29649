package scheduler

import (
	"testing"
	"time"
)

func TestValidateCronExpr(t *testing.T) {
	valid := []string{
		"* * * * *",
		"*/15 * * * *",
		"0 9 * * 1-5",
		"30 8 1 * *",
	}
	for _, expr := range valid {
		if err := ValidateCronExpr(expr); err != nil {
			t.Errorf("ValidateCronExpr(%q) = %v, want nil", expr, err)
		}
	}

	invalid := []string{
		"",
		"not a cron",
		"* * * *",       // четыре поля
		"* * * * * *",   // шесть полей
		"61 * * * *",    // минута вне диапазона
		"@every 30 sec", // descriptor с опечаткой
	}
	for _, expr := range invalid {
		if err := ValidateCronExpr(expr); err == nil {
			t.Errorf("ValidateCronExpr(%q) = nil, want error", expr)
		}
	}
}

func TestNextDue(t *testing.T) {
	from := time.Date(2025, 3, 10, 8, 30, 0, 0, time.UTC) // понедельник

	tests := []struct {
		expr string
		want time.Time
	}{
		{"*/15 * * * *", time.Date(2025, 3, 10, 8, 45, 0, 0, time.UTC)},
		{"0 9 * * 1-5", time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)},
		{"0 0 * * 0", time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC)}, // воскресенье
		{"30 8 1 * *", time.Date(2025, 4, 1, 8, 30, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		got, err := NextDue(tt.expr, from)
		if err != nil {
			t.Errorf("NextDue(%q) error: %v", tt.expr, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("NextDue(%q) = %v, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestNextDueInvalidExpression(t *testing.T) {
	if _, err := NextDue("bogus", time.Now()); err == nil {
		t.Fatal("expected error for invalid expression")
	}
}
