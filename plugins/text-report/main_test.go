package main

import (
	"strings"
	"testing"
)

var testTable = []Size{
	{US: 7.5, UK: "O", EU: 56, DiameterMM: 17.7, CircumferenceMM: 55.7},
	{US: 8, UK: "P", EU: 57, DiameterMM: 18.1, CircumferenceMM: 57.0},
	{US: 8.5, UK: "Q", EU: 58, DiameterMM: 18.5, CircumferenceMM: 58.3},
}

func TestRenderText(t *testing.T) {
	m := measurement{
		ID:               "0f8fad5b-d9cb-469f-a165-70867728950e",
		RingSize:         testTable[1],
		Confidence:       95,
		Method:           "reference_object",
		Stage:            "cloud",
		FingerDiameterMM: 18.2,
		Zones:            []zone{{Name: "Mid", WidthMM: 18.2, ErrorMM: 0.4}},
	}

	out := renderText(m, testTable)
	for _, want := range []string{"US 8 / UK P / EU 57", "Confidence: 95%", "Mid", "US 7.5", "US 8.5"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestRenderMarkdown(t *testing.T) {
	m := measurement{RingSize: testTable[0], Confidence: 30, Method: "no_reference_fallback"}

	out := renderMarkdown(m, testTable)
	if !strings.HasPrefix(out, "# Ring size US 7.5") {
		t.Errorf("heading wrong:\n%s", out)
	}
	if !strings.Contains(out, "Nearby sizes: US 7.5, US 8") {
		t.Errorf("neighbours wrong:\n%s", out)
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID(abc) = %q", got)
	}
	if got := shortID("0123456789"); got != "01234567" {
		t.Errorf("shortID = %q", got)
	}
}
