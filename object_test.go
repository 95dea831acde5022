package gcsmock

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New()
	require.NoError(t, err)
	return s
}

func TestExistsLifecycle(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	obj := s.Bucket("b").Object("o")

	exists, err := obj.Exists(ctx)
	require.NoError(t, err)
	require.False(t, exists, "a freshly resolved handle must not exist")

	require.NoError(t, obj.Save(ctx, []byte("data"), nil))

	exists, err = obj.Exists(ctx)
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, obj.Delete(ctx))

	exists, err = obj.Exists(ctx)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestDeleteAbsentObject(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	obj := s.Bucket("b").Object("missing")

	err := obj.Delete(ctx)
	require.ErrorIs(t, err, ErrObjectNotExist)
}

func TestHandlesAreIdentityStable(t *testing.T) {
	s := newTestStorage(t)

	require.Same(t, s.Bucket("b"), s.Bucket("b"))
	require.Same(t, s.Bucket("b").Object("o"), s.Bucket("b").Object("o"))
	require.NotSame(t, s.Bucket("b").Object("o"), s.Bucket("b").Object("other"))
}

func TestSaveDownloadRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	obj := s.Bucket("b").Object("o")

	payload := []byte("Hello, gcsmock!")
	require.NoError(t, obj.Save(ctx, payload, nil))

	got, err := obj.Download(ctx)
	require.NoError(t, err)
	require.Equal(t, payload, got)

	// The returned slice is a copy: mutating it must not affect the store.
	got[0] = 'X'
	again, err := obj.Download(ctx)
	require.NoError(t, err)
	require.Equal(t, payload, again)
}

func TestDownloadAbsentObject(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.Bucket("b").Object("missing").Download(ctx)
	require.ErrorIs(t, err, ErrObjectNotExist)
}

func TestDownloadToFile(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	obj := s.Bucket("b").Object("o")
	require.NoError(t, obj.Save(ctx, []byte("on disk"), nil))

	dest := filepath.Join(t.TempDir(), "out.bin")
	data, err := obj.DownloadToFile(ctx, dest)
	require.NoError(t, err)
	require.Equal(t, []byte("on disk"), data)

	onDisk, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, []byte("on disk"), onDisk)
}

func TestFailNextSingleShot(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	obj := s.Bucket("b").Object("o")
	require.NoError(t, obj.Save(ctx, []byte("x"), nil))

	boom := errors.New("boom")
	obj.FailNext(OpDownload, boom)

	_, err := obj.Download(ctx)
	require.Same(t, boom, err, "injected error must surface verbatim")

	// The queue entry was consumed: the next call proceeds normally.
	got, err := obj.Download(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte("x"), got)
}

func TestFailNextFIFO(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	obj := s.Bucket("b").SeedObject("o")

	first := errors.New("first")
	second := errors.New("second")
	obj.FailNext(OpExists, first)
	obj.FailNext(OpExists, second)

	_, err := obj.Exists(ctx)
	require.Same(t, first, err)
	_, err = obj.Exists(ctx)
	require.Same(t, second, err)
	exists, err := obj.Exists(ctx)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestFailedMutatorLeavesStateUnchanged(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	obj := s.Bucket("b").Object("o")
	require.NoError(t, obj.Save(ctx, []byte("keep"), nil))

	boom := errors.New("boom")
	obj.FailNext(OpDelete, boom)
	require.Same(t, boom, obj.Delete(ctx))

	exists, err := obj.Exists(ctx)
	require.NoError(t, err)
	require.True(t, exists, "failed delete must not remove membership")

	obj.FailNext(OpSave, boom)
	require.Same(t, boom, obj.Save(ctx, []byte("new"), nil))

	got, err := obj.Download(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte("keep"), got, "failed save must not mutate contents")
}

func TestFaultQueuesAreIndependent(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	obj := s.Bucket("b").SeedObject("o")

	obj.FailNext(OpExists, errors.New("exists boom"))

	// A fault queued on exists must not affect download.
	_, err := obj.Download(ctx)
	require.NoError(t, err)

	// Faults are per-object: a second object is unaffected.
	other := s.Bucket("b").SeedObject("other")
	_, err = other.Exists(ctx)
	require.NoError(t, err)
}

func TestFaultAppliesRegardlessOfState(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	obj := s.Bucket("b").Object("absent")

	boom := errors.New("boom")
	obj.FailNext(OpDownload, boom)

	// The injected fault wins over the NotFound the absent state would give.
	_, err := obj.Download(ctx)
	require.Same(t, boom, err)

	// Consumed: now the ordinary absent behavior is back.
	_, err = obj.Download(ctx)
	require.ErrorIs(t, err, ErrObjectNotExist)
}

func TestResetFaults(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	obj := s.Bucket("b").SeedObject("o")

	obj.FailNext(OpExists, errors.New("boom"))
	obj.FailNext(OpDelete, errors.New("boom"))
	obj.ResetFaults()

	_, err := obj.Exists(ctx)
	require.NoError(t, err)
	require.NoError(t, obj.Delete(ctx))
}

func TestSetMetadataMergesCustomMetadata(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	obj := s.Bucket("b").Object("o")
	require.NoError(t, obj.Save(ctx, []byte("x"), nil))

	_, err := obj.SetMetadata(ctx, Metadata{"metadata": map[string]any{"a": 1}})
	require.NoError(t, err)

	merged, err := obj.SetMetadata(ctx, Metadata{"metadata": map[string]any{"b": 2}})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"a": 1, "b": 2}, merged.Custom(), "custom metadata merges, not overwrites")

	// Top-level keys shallow-overwrite.
	merged, err = obj.SetMetadata(ctx, Metadata{"contentType": "text/plain"})
	require.NoError(t, err)
	require.Equal(t, "text/plain", merged["contentType"])
	require.Equal(t, map[string]any{"a": 1, "b": 2}, merged.Custom())

	merged, err = obj.SetMetadata(ctx, Metadata{"contentType": "image/png"})
	require.NoError(t, err)
	require.Equal(t, "image/png", merged["contentType"])
}

func TestSaveMetadataFullyOverwrites(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	obj := s.Bucket("b").Object("o")
	require.NoError(t, obj.Save(ctx, []byte("x"), nil))

	_, err := obj.SetMetadata(ctx, Metadata{
		"contentType": "text/plain",
		"metadata":    map[string]any{"a": 1, "b": 2},
	})
	require.NoError(t, err)

	require.NoError(t, obj.Save(ctx, []byte("y"), Metadata{"metadata": map[string]any{"c": 3}}))

	md, err := obj.Metadata(ctx)
	require.NoError(t, err)
	require.Equal(t, Metadata{"metadata": map[string]any{"c": 3}}, md, "save replaces the whole metadata structure")
}

func TestSetMetadataAbsentObject(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.Bucket("b").Object("missing").SetMetadata(ctx, Metadata{"a": 1})
	require.ErrorIs(t, err, ErrObjectNotExist)

	_, err = s.Bucket("b").Object("missing").Metadata(ctx)
	require.ErrorIs(t, err, ErrObjectNotExist)
}

func TestMetadataReturnsCopy(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	obj := s.Bucket("b").Object("o")
	require.NoError(t, obj.Save(ctx, []byte("x"), nil))

	md, err := obj.Metadata(ctx)
	require.NoError(t, err)
	md["contentType"] = "tampered"
	md.Custom()["evil"] = true

	fresh, err := obj.Metadata(ctx)
	require.NoError(t, err)
	require.NotContains(t, fresh, "contentType")
	require.Empty(t, fresh.Custom())
}

func TestSignedURL(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	obj := s.Bucket("my-bucket").Object("path/to/object.txt")
	require.NoError(t, obj.Save(ctx, []byte("x"), nil))

	url, err := obj.SignedURL(SignedURLOptions{Method: "GET", Expires: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	require.Equal(t, "https://storage.googleapis.com/my-bucket/path/to/object.txt?X-Goog-Algorithm=MOCKED", url)
}

func TestSignedURLValidation(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	obj := s.Bucket("b").Object("o")
	require.NoError(t, obj.Save(ctx, []byte("x"), nil))

	tests := []struct {
		name string
		opts SignedURLOptions
	}{
		{"missing method", SignedURLOptions{Expires: time.Now().Add(time.Hour)}},
		{"unknown method", SignedURLOptions{Method: "YEET", Expires: time.Now().Add(time.Hour)}},
		{"missing expires", SignedURLOptions{Method: "GET"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := obj.SignedURL(tt.opts)
			require.Error(t, err)
		})
	}
}

func TestSignedURLAbsentObject(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.Bucket("b").Object("missing").SignedURL(SignedURLOptions{Method: "GET", Expires: time.Now().Add(time.Hour)})
	require.ErrorIs(t, err, ErrObjectNotExist)
}

func TestURIAndAccessors(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	bucket := s.Bucket("pics")
	obj := bucket.Object("cat.png")

	require.Equal(t, "gs://pics", bucket.URI())
	require.Equal(t, "gs://pics/cat.png", obj.URI())
	require.Equal(t, "pics", bucket.Name())
	require.Equal(t, "cat.png", obj.Name())
	require.Equal(t, "pics", obj.BucketName())

	require.NoError(t, obj.Save(ctx, []byte("meow"), nil))
	require.Equal(t, int64(4), obj.Size())
	// Quoted MD5 hex of "meow".
	require.Equal(t, `"4a4be40c96ac6314e91d93f38043a634"`, obj.ETag())
}
