package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		path   string
		want   ChangeType
		ignore bool
	}{
		{path: "/data/vert-a.json", want: ChangeTypeRecord},
		{path: "/data/ws-w1.json", want: ChangeTypeRecord},
		{path: "/data/w1/a/intro.md", want: ChangeTypeAsset},
		{path: "/data/w1/a/links.json", want: ChangeTypeAsset},
		{path: "/data/w1/a/.DS_Store", ignore: true},
		{path: "/data/vert-a.json.swp", ignore: true},
	}
	for _, tc := range cases {
		got, ok := Classify(tc.path)
		if ok == tc.ignore {
			t.Errorf("Classify(%q): expected ignore=%v", tc.path, tc.ignore)
			continue
		}
		if ok && got != tc.want {
			t.Errorf("Classify(%q): expected %v, got %v", tc.path, tc.want, got)
		}
	}
}

func TestAnalyzeChanges(t *testing.T) {
	plan := AnalyzeChanges(ChangeEvent{Type: ChangeTypeRecord, Paths: []string{"vert-a.json"}})
	if !plan.Reload || !plan.RefreshCounts {
		t.Errorf("Expected reload and counts refresh for records, got %+v", plan)
	}
	plan = AnalyzeChanges(ChangeEvent{Type: ChangeTypeAsset})
	if plan.Reload || !plan.RefreshCounts {
		t.Errorf("Expected counts refresh only for assets, got %+v", plan)
	}
}

func TestDebouncer_MergesBurst(t *testing.T) {
	input := make(chan ChangeEvent)
	d := NewDebouncer(input, 30*time.Millisecond, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	input <- ChangeEvent{Type: ChangeTypeAsset, Paths: []string{"a/one.md"}}
	input <- ChangeEvent{Type: ChangeTypeRecord, Paths: []string{"vert-a.json"}}
	input <- ChangeEvent{Type: ChangeTypeAsset, Paths: []string{"a/two.md"}}

	var got []ChangeEvent
	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case e := <-d.Output():
			got = append(got, e)
		case <-timeout:
			t.Fatalf("Timeout waiting for debounced events, got %+v", got)
		}
	}

	if got[0].Type != ChangeTypeRecord || got[1].Type != ChangeTypeAsset {
		t.Errorf("Expected records before assets, got %v then %v", got[0].Type, got[1].Type)
	}
	if len(got[1].Paths) != 2 {
		t.Errorf("Expected both asset paths merged, got %v", got[1].Paths)
	}
}

func TestDebouncer_MaxWait(t *testing.T) {
	input := make(chan ChangeEvent)
	d := NewDebouncer(input, time.Hour, 50*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	input <- ChangeEvent{Type: ChangeTypeAsset, Paths: []string{"a/one.md"}}

	select {
	case e := <-d.Output():
		if len(e.Paths) != 1 {
			t.Errorf("Expected 1 path, got %v", e.Paths)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected flush at max wait despite no quiet period")
	}
}

func TestFileWatcher_ReportsRecordsAndAssets(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "w1", "a"), 0o755); err != nil {
		t.Fatal(err)
	}

	fw, err := NewFileWatcher(root)
	if err != nil {
		t.Fatalf("NewFileWatcher failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := fw.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	os.WriteFile(filepath.Join(root, "vert-a.json"), []byte(`{"id":"a"}`), 0o644)
	os.WriteFile(filepath.Join(root, "w1", "a", "intro.md"), []byte("# hi"), 0o644)

	seen := map[ChangeType]bool{}
	timeout := time.After(5 * time.Second)
	for !seen[ChangeTypeRecord] || !seen[ChangeTypeAsset] {
		select {
		case e := <-fw.Events():
			seen[e.Type] = true
		case <-timeout:
			t.Fatalf("Timeout waiting for changes, saw %v", seen)
		}
	}

	cancel()
	for range fw.Events() {
	}
}
