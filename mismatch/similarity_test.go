package mismatch_test

import (
	"testing"

	"docverify/extract"
	"docverify/mismatch"
)

func TestSimilarityExactFieldsAreBinary(t *testing.T) {
	cases := []struct {
		field string
		a, b  string
		want  float64
	}{
		{extract.FieldPostcode, "2000", "2000", 1},
		{extract.FieldPostcode, "2000", "2001", 0},
		{extract.FieldABN, "51 824 753 556", "51824753556", 1},
		{extract.FieldABN, "51824753556", "51824753557", 0},
		{extract.FieldDateOfBirth, "12/03/1985", "1985-03-12", 1},
		{extract.FieldDateOfBirth, "12/03/1985", "13/03/1985", 0},
	}
	for _, tc := range cases {
		if got := mismatch.Similarity(tc.field, tc.a, tc.b); got != tc.want {
			t.Fatalf("Similarity(%s, %q, %q) = %v, want %v", tc.field, tc.a, tc.b, got, tc.want)
		}
	}
}

func TestSimilarityTextFields(t *testing.T) {
	cases := []struct {
		a, b     string
		min, max float64
	}{
		{"Jane Citizen", "jane   citizen", 1, 1},
		{"Jane Citizen", "Citizen Jane", 1, 1},
		{"Jane Citizen", "", 0, 0},
		{"Smith", "Smyth", 0.7, 0.9},
		{"Jane Citizen", "Robert Menzies", 0, 0.3},
		// 3 of 5 union words match exactly, harbour/harbor partially:
		// (3 + 6/7) / 5.
		{"12 Harbour St Sydney", "12 Harbor St Sydney", 0.75, 0.8},
	}
	for _, tc := range cases {
		got := mismatch.Similarity(extract.FieldName, tc.a, tc.b)
		if got < tc.min || got > tc.max {
			t.Fatalf("Similarity(%q, %q) = %.3f, want in [%.2f, %.2f]", tc.a, tc.b, got, tc.min, tc.max)
		}
	}
}

func TestSimilarityIsSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"12 Harbour St Sydney", "12 Harbor Street Sydney"},
		{"Jane Citizen", "Jayne Citzen"},
		{"Unit 4 90 George St", "90 George St Unit 4"},
		{"Smith", "Smyth"},
	}
	for _, p := range pairs {
		ab := mismatch.Similarity(extract.FieldAddress, p[0], p[1])
		ba := mismatch.Similarity(extract.FieldAddress, p[1], p[0])
		if ab != ba {
			t.Fatalf("Similarity(%q, %q) = %v but reversed = %v", p[0], p[1], ab, ba)
		}
	}
}

func TestSimilarityBounds(t *testing.T) {
	pairs := [][2]string{
		{"a", "completely different text here"},
		{"12 Harbour St", "13 Harbour St"},
		{"x", "x"},
	}
	for _, p := range pairs {
		got := mismatch.Similarity(extract.FieldAddress, p[0], p[1])
		if got < 0 || got > 1 {
			t.Fatalf("Similarity(%q, %q) = %v out of [0,1]", p[0], p[1], got)
		}
	}
}
