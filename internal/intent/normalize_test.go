package intent

import (
	"testing"
	"time"
)

var refNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC) // a Monday

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2025-05-15", "2025-05-15", true},
		{"today", "2025-03-10", true},
		{"tomorrow", "2025-03-11", true},
		{"friday", "2025-03-14", true},
		{"monday", "2025-03-17", true}, // same weekday rolls a full week
		{"next tuesday", "2025-03-11", true},
		{"15 May 2025", "2025-05-15", true},
		{"garbage", "", false},
		{"", "", false},
		{"2025-13-40", "", false},
	}

	for _, tt := range tests {
		got, ok := NormalizeDate(tt.in, refNow)
		if ok != tt.ok || got != tt.want {
			t.Errorf("NormalizeDate(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNormalizeTime(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"9am", "09:00", true},
		{"9 am", "09:00", true},
		{"09:00", "09:00", true},
		{"9:30pm", "21:30", true},
		{"12am", "00:00", true},
		{"12pm", "12:00", true},
		{"23:45", "23:45", true},
		{"25:00", "", false},
		{"13pm", "", false},
		{"soonish", "", false},
	}

	for _, tt := range tests {
		got, ok := NormalizeTime(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("NormalizeTime(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"+971501234567", "+971501234567", true},
		{"00971501234567", "+971501234567", true},
		{"971501234567", "+971501234567", true},
		{"0501234567", "+971501234567", true},
		{"+1 (415) 555-0100", "+14155550100", true},
		{"123", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := NormalizePhone(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("NormalizePhone(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNormalizeEmiratesID(t *testing.T) {
	want := "784-1234-5678901-2"

	for _, in := range []string{
		"784-1234-5678901-2",
		"784123456789012",
		"784 1234 5678901 2",
	} {
		got, ok := NormalizeEmiratesID(in)
		if !ok || got != want {
			t.Errorf("NormalizeEmiratesID(%q) = (%q, %v), want (%q, true)", in, got, ok, want)
		}
	}

	for _, in := range []string{"123456789012345", "784-1234", ""} {
		if _, ok := NormalizeEmiratesID(in); ok {
			t.Errorf("NormalizeEmiratesID(%q) should fail", in)
		}
	}
}

func TestExtractEmiratesID(t *testing.T) {
	got, ok := ExtractEmiratesID("my id is 784-1234-5678901-2 thanks")
	if !ok || got != "784-1234-5678901-2" {
		t.Fatalf("ExtractEmiratesID = (%q, %v)", got, ok)
	}

	if _, ok := ExtractEmiratesID("no id here"); ok {
		t.Fatal("expected no match")
	}
}
