package util

import (
	"testing"
	"time"
)

func TestValidTimeframe(t *testing.T) {
	for _, tf := range Timeframes() {
		if !ValidTimeframe(tf) {
			t.Fatalf("expected %s valid", tf)
		}
	}
	for _, tf := range []string{"", "7m", "1M", "1H", "60"} {
		if ValidTimeframe(tf) {
			t.Fatalf("expected %s invalid", tf)
		}
	}
}

func TestTimeframeDuration(t *testing.T) {
	if d := TimeframeDuration("4h"); d != 4*time.Hour {
		t.Fatalf("unexpected duration %v", d)
	}
	if d := TimeframeDuration("bogus"); d != 0 {
		t.Fatalf("expected zero, got %v", d)
	}
}

func TestFormatUTC(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	ts := time.Date(2024, 10, 10, 17, 10, 10, 0, loc)
	if got := FormatUTC(ts); got != "2024-10-10T10:10:10Z" {
		t.Fatalf("unexpected format %s", got)
	}
}
