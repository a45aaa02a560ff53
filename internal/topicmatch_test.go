// Tests for topicmatch.go

package iotrt_internal

import "testing"

func TestMatchTopic(t *testing.T) {
	tests := []struct {
		pattern string
		topic   string
		want    bool
	}{
		{"a/b/c", "a/b/c", true},
		{"a/b/c", "a/b/d", false},
		{"a/b/c", "a/b", false},
		{"a/+/c", "a/x/c", true},
		{"a/+/c", "a/x/y/c", false},
		{"+/+/+", "a/b/c", true},
		{"+/+/+", "a/b", false},
		{"#", "a", true},
		{"#", "a/b/c", true},
		{"#", "", true},
		{"a/#", "a/b", true},
		{"a/#", "a/b/c", true},
		{"a/#", "a", false},
		{"a/b/#", "a/b", false},
		{"a/+", "a/b/c", false},
		{"test/tube", "test/tube", true},
		{"test/+", "test/tube", true},
	}
	for _, tc := range tests {
		if got := MatchTopic(tc.pattern, tc.topic); got != tc.want {
			t.Errorf("MatchTopic(%q, %q) = %v, want %v", tc.pattern, tc.topic, got, tc.want)
		}
	}
}
