package main

import (
	"reflect"
	"testing"
)

func TestParseFrameList(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{"", nil, false},
		{"30", []int{30}, false},
		{"30, 60,120", []int{30, 60, 120}, false},
		{"0", nil, true},
		{"x", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseFrameList(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseFrameList(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
