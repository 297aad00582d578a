package cleaner_test

import (
	"strings"
	"testing"

	"github.com/project-jmr/go-warehouse/internal/common/cleaner"
)

func TestCleanToText(t *testing.T) {
	c := cleaner.NewCleaner()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain text untouched", "Build data pipelines.", "Build data pipelines."},
		{"tags stripped", "<p>Build <b>data</b> pipelines.</p>", "Build data pipelines."},
		{"entities decoded", "R&amp;D &eacute;quipe", "R&D équipe"},
		{"script removed", `<script>alert("x")</script>Senior role`, "Senior role"},
		{"surrounding whitespace trimmed", "  \n<p>Senior role</p>\n ", "Senior role"},
	}
	for _, c2 := range cases {
		t.Run(c2.name, func(t *testing.T) {
			if got := c.CleanToText(c2.in); got != c2.want {
				t.Errorf("CleanToText(%q) = %q, want %q", c2.in, got, c2.want)
			}
		})
	}
}

func TestCleanToText_CollapsesBlankRuns(t *testing.T) {
	c := cleaner.NewCleaner()
	got := c.CleanToText("Missions:\n\n\n\n- build pipelines\n\n\n- maintain the warehouse")
	if strings.Contains(got, "\n\n\n") {
		t.Errorf("blank runs not collapsed: %q", got)
	}
	if !strings.Contains(got, "- build pipelines") {
		t.Errorf("content lost: %q", got)
	}
}
