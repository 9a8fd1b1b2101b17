package buildinfo

import "testing"

func TestSummaryUnknownByDefault(t *testing.T) {
	if got := Summary(); got != "unknown" {
		t.Errorf("Summary() = %q, want %q", got, "unknown")
	}
}

func TestSummaryCombinesVersionAndGitInfo(t *testing.T) {
	defer func() { Version, GitInfo = "", "" }()
	Version = "1.0"
	GitInfo = "abc123"
	if got, want := Summary(), "1.0, abc123"; got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
}

func TestTestingLinked(t *testing.T) {
	if !TestingLinked() {
		t.Error("TestingLinked() = false, want true when running under go test")
	}
}
