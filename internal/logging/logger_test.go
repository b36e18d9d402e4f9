package logging

import "testing"

func TestGetReturnsSameLoggerPerCategory(t *testing.T) {
	a := Get(CategorySource)
	b := Get(CategorySource)
	if a != b {
		t.Error("Get should return a cached logger for the same category")
	}
}

func TestInitializeUnknownLevelFallsBack(t *testing.T) {
	if err := Initialize("nonsense"); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	// Helpers must not panic against a rebuilt logger.
	SourceDebug("post-init debug: %d", 1)
	Registry("post-init info")
	Sync()
}
