package models

import "testing"

func TestIsValidCarType(t *testing.T) {
	tests := []struct {
		carType string
		want    bool
	}{
		{CarTypeSedan, true},
		{CarTypeSUV, true},
		{CarTypeWagon, true},
		{"suv", false},
		{"VAN", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsValidCarType(tt.carType); got != tt.want {
			t.Errorf("IsValidCarType(%q) = %v, want %v", tt.carType, got, tt.want)
		}
	}
}
