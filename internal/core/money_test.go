package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"42.50", 4250, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{".5", 50, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-5", 0, false},
		{"+5", 0, false},
		{"0", 0, false},
		{"0.00", 0, false},
		{"0.004", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{".", 0, false},
		{"", 0, false},
		{"1.٣", 0, false},
		{"١٢", 0, false},
		{"５", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("%q expected ErrInvalidAmount, got %v", tc.in, err)
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	decode := []struct {
		in   string
		want int64
	}{
		{`"42.50"`, 4250},
		{`42.5`, 4250},
		{`-12.3`, -1230},
		{`"-0.75"`, -75},
		{`100`, 10000},
		{`1e3`, 100000},
		{`null`, 0},
	}
	for _, tc := range decode {
		var m Money
		if err := json.Unmarshal([]byte(tc.in), &m); err != nil {
			t.Fatalf("unmarshal %s: %v", tc.in, err)
		}
		if m.Cents != tc.want {
			t.Errorf("unmarshal %s = %d, want %d", tc.in, m.Cents, tc.want)
		}
	}

	var bad Money
	if err := json.Unmarshal([]byte(`"abc"`), &bad); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
	if err := json.Unmarshal([]byte(`"0.٣"`), &bad); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("non-ASCII digits: expected ErrInvalidAmount, got %v", err)
	}

	encode := map[int64]string{4250: "42.5", 1: "0.01", 10000: "100", -1230: "-12.3"}
	for cents, want := range encode {
		b, err := json.Marshal(Money{Cents: cents})
		if err != nil {
			t.Fatal(err)
		}
		if string(b) != want {
			t.Errorf("marshal %d = %s, want %s", cents, b, want)
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{4250: "42.50", 5: "0.05", -305: "-3.05", 0: "0.00"}
	for cents, want := range cases {
		if got := (Money{Cents: cents}).String(); got != want {
			t.Errorf("String(%d) = %q, want %q", cents, got, want)
		}
	}
}

func TestFromFloat(t *testing.T) {
	if got := FromFloat(19.999).Cents; got != 2000 {
		t.Errorf("FromFloat(19.999) = %d, want 2000", got)
	}
	if got := FromFloat(-0.016).Cents; got != -2 {
		t.Errorf("FromFloat(-0.016) = %d, want -2", got)
	}
}
