package ytdlp

import "testing"

func TestLineTailKeepsMostRecent(t *testing.T) {
	tail := &lineTail{limit: 2}
	tail.add("one")
	tail.add("  ")
	tail.add("two")
	tail.add("three")
	if got := tail.String(); got != "two | three" {
		t.Fatalf("unexpected tail %q", got)
	}
}
