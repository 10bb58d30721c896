package objstore

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestClientPutFile_SignsPathStyleRequest(t *testing.T) {
	var (
		gotPath, gotAuth, gotType, gotBody string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			http.Error(w, "method", http.StatusMethodNotAllowed)
			return
		}
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := New(Config{Endpoint: srv.URL, Bucket: "procurement", AccessKeyID: "AK", SecretAccessKey: "SK"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	local := filepath.Join(t.TempDir(), "receipts-2026-01-02-03.jsonl.zst")
	if err := os.WriteFile(local, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := c.PutFile(context.Background(), "chains/procure-1/run 1/receipts-2026-01-02-03.jsonl.zst", local); err != nil {
		t.Fatalf("PutFile: %v", err)
	}
	if gotPath != "/procurement/chains/procure-1/run 1/receipts-2026-01-02-03.jsonl.zst" {
		t.Fatalf("path=%q", gotPath)
	}
	if !strings.HasPrefix(gotAuth, "AWS4-HMAC-SHA256 Credential=AK/20260102/auto/s3/aws4_request, SignedHeaders=host;x-amz-content-sha256;x-amz-date, Signature=") {
		t.Fatalf("auth=%q", gotAuth)
	}
	if gotType != "application/zstd" || gotBody != "payload" {
		t.Fatalf("type=%q body=%q", gotType, gotBody)
	}
}

func TestNew_RequiresCredentials(t *testing.T) {
	if _, err := New(Config{Endpoint: "example.com", Bucket: "b"}); err == nil {
		t.Fatalf("expected error without credentials")
	}
}

type fakeUploader struct {
	mu    sync.Mutex
	fails int
	keys  []string
}

func (f *fakeUploader) PutFile(_ context.Context, key, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails > 0 {
		f.fails--
		return errors.New("temporary")
	}
	f.keys = append(f.keys, key)
	return nil
}

func TestMirror_RetriesAndMapsKeys(t *testing.T) {
	dataDir := t.TempDir()
	local := filepath.Join(dataDir, "chains", "procure-1", "snapshots", "10050-12.snap.zst")
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(local, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	outside := filepath.Join(t.TempDir(), "elsewhere.json")
	_ = os.WriteFile(outside, []byte("{}"), 0o644)

	up := &fakeUploader{fails: 2}
	m := NewMirror(up, MirrorConfig{DataDir: dataDir, Prefix: "/public/", Backoff: time.Millisecond})
	m.Enqueue(local)
	m.Enqueue(outside)
	m.Close()

	if len(up.keys) != 1 || up.keys[0] != "public/chains/procure-1/snapshots/10050-12.snap.zst" {
		t.Fatalf("keys=%v", up.keys)
	}
	st := m.Stats()
	if st.UploadSuccessTotal != 1 || st.UploadFailTotal != 0 || st.EnqueuedTotal != 2 {
		t.Fatalf("stats=%+v", st)
	}
}
