package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer_CoalescesRapidTriggers(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var callCount atomic.Int32
	for i := 0; i < 10; i++ {
		d.Trigger(func() {
			callCount.Add(1)
		})
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(150 * time.Millisecond)

	if count := callCount.Load(); count != 1 {
		t.Errorf("expected 1 callback invocation, got %d", count)
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var called atomic.Bool
	d.Trigger(func() {
		called.Store(true)
	})
	d.Cancel()

	time.Sleep(100 * time.Millisecond)

	if called.Load() {
		t.Error("callback should not have been invoked after cancel")
	}
}

func TestDebouncer_DefaultDuration(t *testing.T) {
	d := NewDebouncer(0)
	if d.Duration() != DefaultDebounceDuration {
		t.Errorf("expected default duration %v, got %v", DefaultDebounceDuration, d.Duration())
	}
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// recorder collects changed paths from the callback.
type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) add(path string) {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
}

func (r *recorder) seen(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.paths {
		if p == path {
			return true
		}
	}
	return false
}

func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return false
}

func TestWatcher_DetectsFileChange(t *testing.T) {
	data := writeTemp(t, "data.csv", "a,b\n")
	rec := &recorder{}

	w, err := NewWatcher([]string{data},
		WithDebounceDuration(50*time.Millisecond),
		WithOnChange(rec.add),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(data, []byte("a,b\n1,2\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if !waitFor(t, func() bool { return rec.seen(data) }) {
		t.Error("expected change to be detected")
	}
}

func TestWatcher_MultiplePathsReportWhichChanged(t *testing.T) {
	data := writeTemp(t, "data.csv", "a\n")
	cfg := writeTemp(t, "dashboard.yaml", "tabs: []\n")
	rec := &recorder{}

	w, err := NewWatcher([]string{data, cfg, data, ""},
		WithForcePoll(true),
		WithDebounceDuration(10*time.Millisecond),
		WithPollInterval(25*time.Millisecond),
		WithOnChange(rec.add),
	)
	if err != nil {
		t.Fatal(err)
	}
	if got := len(w.Paths()); got != 2 {
		t.Fatalf("expected duplicates and blanks dropped, got %d paths", got)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(cfg, []byte("tabs: []\n# edited\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if !waitFor(t, func() bool { return rec.seen(cfg) }) {
		t.Fatal("expected config change to be reported")
	}
	if rec.seen(data) {
		t.Error("expected untouched data file not to be reported")
	}
}

func TestWatcher_NoPaths(t *testing.T) {
	if _, err := NewWatcher([]string{"", " "}); !errors.Is(err, ErrNoPaths) {
		t.Errorf("expected ErrNoPaths, got %v", err)
	}
}

func TestWatcher_PollingFallback(t *testing.T) {
	data := writeTemp(t, "data.csv", "initial")
	rec := &recorder{}

	w, err := NewWatcher([]string{data},
		WithForcePoll(true),
		WithPollInterval(50*time.Millisecond),
		WithDebounceDuration(20*time.Millisecond),
		WithOnChange(rec.add),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if !w.IsPolling() {
		t.Error("expected polling mode")
	}

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(data, []byte("modified content that is longer"), 0644); err != nil {
		t.Fatal(err)
	}

	if !waitFor(t, func() bool { return rec.seen(data) }) {
		t.Error("expected change to be detected via polling")
	}
}

func TestWatcher_ChangedChannel(t *testing.T) {
	data := writeTemp(t, "data.csv", "initial")

	w, err := NewWatcher([]string{data},
		WithForcePoll(true),
		WithPollInterval(25*time.Millisecond),
		WithDebounceDuration(10*time.Millisecond),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(data, []byte("modified!"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-w.Changed():
		if got != data {
			t.Errorf("expected %s on channel, got %s", data, got)
		}
	case <-time.After(2 * time.Second):
		t.Error("timeout waiting for change notification")
	}
}

func TestWatcher_EnvForcePoll(t *testing.T) {
	t.Setenv(ForcePollEnv, "yes")
	data := writeTemp(t, "data.csv", "initial")

	w, err := NewWatcher([]string{data}, WithPollInterval(25*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if !w.IsPolling() {
		t.Fatalf("expected polling mode when %s is set", ForcePollEnv)
	}
}

func TestWatcher_RemoteFilesystem_UsesPolling(t *testing.T) {
	data := writeTemp(t, "data.csv", "initial")

	orig := detectFilesystemTypeFunc
	detectFilesystemTypeFunc = func(string) FilesystemType { return FSTypeNFS }
	t.Cleanup(func() { detectFilesystemTypeFunc = orig })

	w, err := NewWatcher([]string{data}, WithPollInterval(25*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if !w.IsPolling() {
		t.Fatal("expected watcher to use polling on remote filesystem")
	}
	if got := w.FilesystemType(); got != FSTypeNFS {
		t.Fatalf("expected filesystem type %v, got %v", FSTypeNFS, got)
	}
}

func TestWatcher_FileRemoved(t *testing.T) {
	data := writeTemp(t, "data.csv", "initial")

	var removed atomic.Bool
	w, err := NewWatcher([]string{data},
		WithForcePoll(true),
		WithPollInterval(25*time.Millisecond),
		WithOnError(func(err error) {
			if errors.Is(err, ErrFileRemoved) {
				removed.Store(true)
			}
		}),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.Remove(data); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, removed.Load) {
		t.Error("expected ErrFileRemoved to be reported")
	}
}

func TestWatcher_StartStop(t *testing.T) {
	data := writeTemp(t, "data.csv", "x")

	w, err := NewWatcher([]string{data})
	if err != nil {
		t.Fatal(err)
	}
	if w.IsStarted() {
		t.Error("expected watcher not started")
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}
	w.Stop()
	if w.IsStarted() {
		t.Error("expected watcher stopped")
	}
	w.Stop()
}

func TestWatcher_PathsAreAbsolute(t *testing.T) {
	w, err := NewWatcher([]string{"relative.csv"})
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(w.Paths()[0]) {
		t.Errorf("expected absolute path, got %s", w.Paths()[0])
	}
}

func TestWatcher_PollInterval(t *testing.T) {
	w, err := NewWatcher([]string{"x.csv"}, WithPollInterval(0))
	if err != nil {
		t.Fatal(err)
	}
	if w.PollInterval() != DefaultPollInterval {
		t.Errorf("expected default poll interval, got %v", w.PollInterval())
	}
}

func TestFilesystemType_String(t *testing.T) {
	cases := map[FilesystemType]string{
		FSTypeUnknown:      "unknown",
		FSTypeLocal:        "local",
		FSTypeNFS:          "nfs",
		FSTypeSMB:          "smb",
		FSTypeSSHFS:        "sshfs",
		FSTypeFUSE:         "fuse",
		FilesystemType(99): "unknown",
	}
	for ft, want := range cases {
		if got := ft.String(); got != want {
			t.Errorf("%d.String() = %q, expected %q", ft, got, want)
		}
	}
}

func TestEnvBool(t *testing.T) {
	cases := []struct {
		value string
		want  bool
	}{
		{"1", true},
		{"true", true},
		{"TRUE", true},
		{" on ", true},
		{"y", true},
		{"0", false},
		{"false", false},
		{"maybe", false},
		{"", false},
	}
	for _, tc := range cases {
		t.Setenv("CSVBOARD_TEST_BOOL", tc.value)
		if got := envBool("CSVBOARD_TEST_BOOL"); got != tc.want {
			t.Errorf("envBool(%q) = %v, expected %v", tc.value, got, tc.want)
		}
	}
}

func TestDetectFilesystemType_EmptyPath(t *testing.T) {
	if got := DetectFilesystemType(""); got != FSTypeUnknown {
		t.Errorf("DetectFilesystemType(\"\") = %v, expected FSTypeUnknown", got)
	}
}

func TestDetectFilesystemType_NonExistentPath(t *testing.T) {
	// falls back to the parent directory
	_ = DetectFilesystemType(filepath.Join(t.TempDir(), "does_not_exist.csv"))
}

func TestIsRemoteFilesystem(t *testing.T) {
	if isRemoteFilesystem(FSTypeLocal) || isRemoteFilesystem(FSTypeUnknown) {
		t.Error("expected local and unknown to be treated as local")
	}
	if !isRemoteFilesystem(FSTypeSMB) || !isRemoteFilesystem(FSTypeFUSE) {
		t.Error("expected smb and fuse to be remote")
	}
}
