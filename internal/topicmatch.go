// Topic pattern matching: segments separated by '/'. '+' matches exactly one
// segment, '#' matches one or more trailing segments and may only be the
// final segment of a pattern, exact strings match exactly. Case-sensitive.
// A two-pointer segment walker, no regex engine needed.

package iotrt_internal

import "strings"

const (
	topicWildcardSingle = "+"
	topicWildcardMulti  = "#"
)

// MatchTopic reports whether topic satisfies pattern under the grammar
// documented above.
func MatchTopic(pattern, topic string) bool {
	patternSegs := strings.Split(pattern, "/")
	topicSegs := strings.Split(topic, "/")

	i := 0
	for ; i < len(patternSegs); i++ {
		seg := patternSegs[i]

		if seg == topicWildcardMulti {
			// '#' must be the last segment of the pattern, and it matches one
			// or more remaining topic segments:
			return i == len(patternSegs)-1 && i <= len(topicSegs)-1
		}

		if i >= len(topicSegs) {
			return false
		}

		if seg == topicWildcardSingle {
			continue
		}
		if seg != topicSegs[i] {
			return false
		}
	}

	return i == len(topicSegs)
}
