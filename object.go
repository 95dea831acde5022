package gcsmock

import (
	"context"
	"crypto/md5"
	"fmt"
	"os"
	"time"
)

// signedURLHost is the fixed endpoint used for synthetic signed URLs.
const signedURLHost = "https://storage.googleapis.com"

// Object is a handle to one simulated stored object: a named, mutable
// (contents, metadata) pair plus per-operation fault queues. The handle's
// existence in memory is independent of the object's existence in the
// service: an object exists only while it is a member of its bucket, which
// happens on the first mutating operation and ends with Delete.
type Object struct {
	name    string
	bucket  *Bucket
	storage *Storage

	contents []byte
	metadata Metadata
	faults   map[Op][]error
}

// newObject constructs a fresh handle with empty contents, default metadata,
// and empty fault queues. It does not touch the member set.
func newObject(b *Bucket, name string) *Object {
	return &Object{
		name:     name,
		bucket:   b,
		storage:  b.storage,
		metadata: defaultMetadata(),
		faults:   make(map[Op][]error),
	}
}

// Name returns the object's name.
func (o *Object) Name() string {
	return o.name
}

// BucketName returns the name of the bucket this handle belongs to.
func (o *Object) BucketName() string {
	return o.bucket.name
}

// URI returns the object's gs:// resource identifier.
func (o *Object) URI() string {
	return "gs://" + o.bucket.name + "/" + o.name
}

// Size returns the current length of the object's contents in bytes. Size is
// a plain accessor: it ignores existence and fault queues.
func (o *Object) Size() int64 {
	s := o.storage
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(o.contents))
}

// ETag returns the quoted MD5 hex digest of the current contents, derived on
// each call rather than stored.
func (o *Object) ETag() string {
	s := o.storage
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := md5.Sum(o.contents)
	return fmt.Sprintf(`"%x"`, h[:])
}

// presentLocked reports membership. The caller must hold the storage lock.
func (o *Object) presentLocked() bool {
	return o.bucket.members[o.name]
}

// Exists reports whether the object is currently a member of its bucket.
// It fails only via an injected fault.
func (o *Object) Exists(ctx context.Context) (bool, error) {
	s := o.storage
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := o.popFaultLocked(OpExists); err != nil {
		return false, err
	}
	recordOp(string(OpExists), statusSuccess)
	return o.presentLocked(), nil
}

// Delete removes the object from its bucket's member set. It fails with
// ErrObjectNotExist when the object is absent. The handle itself stays
// cached, so a later mutating operation brings the same handle back.
func (o *Object) Delete(ctx context.Context) error {
	s := o.storage
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := o.popFaultLocked(OpDelete); err != nil {
		return err
	}
	if !o.presentLocked() {
		recordOp(string(OpDelete), statusError)
		return ErrObjectNotExist
	}
	o.bucket.markAbsentLocked(o.name)
	recordOp(string(OpDelete), statusSuccess)
	return nil
}

// Download returns a copy of the object's contents. It fails with
// ErrObjectNotExist when the object is absent.
func (o *Object) Download(ctx context.Context) ([]byte, error) {
	s := o.storage
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := o.popFaultLocked(OpDownload); err != nil {
		return nil, err
	}
	if !o.presentLocked() {
		recordOp(string(OpDownload), statusError)
		return nil, ErrObjectNotExist
	}
	recordOp(string(OpDownload), statusSuccess)
	return append([]byte(nil), o.contents...), nil
}

// DownloadToFile downloads the contents and additionally writes them to the
// file at path, overwriting any existing file. The returned bytes are the
// same as Download's.
func (o *Object) DownloadToFile(ctx context.Context, path string) ([]byte, error) {
	data, err := o.Download(ctx)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing download destination: %w", err)
	}
	return data, nil
}

// Save marks the object present (regardless of prior state) and replaces
// its contents with a copy of data. When md is non-nil the entire metadata
// structure is replaced with it: a full overwrite, unlike SetMetadata's
// merge. A failed Save leaves contents, metadata, and membership unchanged.
func (o *Object) Save(ctx context.Context, data []byte, md Metadata) error {
	s := o.storage
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := o.popFaultLocked(OpSave); err != nil {
		return err
	}
	o.bucket.markPresentLocked(o.name)
	o.contents = append([]byte(nil), data...)
	if md != nil {
		o.metadata = md.clone()
	}
	recordOp(string(OpSave), statusSuccess)
	recordBytesStored(len(data))
	return nil
}

// SetMetadata merges md into the object's metadata: top-level keys
// shallow-overwrite existing ones, while the nested custom-metadata sub-map
// is merged key-by-key, preserving keys only present in the old sub-map. It
// fails with ErrObjectNotExist when the object is absent and returns a copy
// of the merged result on success.
func (o *Object) SetMetadata(ctx context.Context, md Metadata) (Metadata, error) {
	s := o.storage
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := o.popFaultLocked(OpSetMetadata); err != nil {
		return nil, err
	}
	if !o.presentLocked() {
		recordOp(string(OpSetMetadata), statusError)
		return nil, ErrObjectNotExist
	}
	o.metadata = o.metadata.merge(md)
	recordOp(string(OpSetMetadata), statusSuccess)
	return o.metadata.clone(), nil
}

// Metadata returns a copy of the object's current metadata. It fails with
// ErrObjectNotExist when the object is absent.
func (o *Object) Metadata(ctx context.Context) (Metadata, error) {
	s := o.storage
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := o.popFaultLocked(OpGetMetadata); err != nil {
		return nil, err
	}
	if !o.presentLocked() {
		recordOp(string(OpGetMetadata), statusError)
		return nil, ErrObjectNotExist
	}
	recordOp(string(OpGetMetadata), statusSuccess)
	return o.metadata.clone(), nil
}

// metadataSnapshot returns a copy of the current metadata without the
// existence check or fault protocol. Administrative accessor.
func (o *Object) metadataSnapshot() Metadata {
	s := o.storage
	s.mu.RLock()
	defer s.mu.RUnlock()

	return o.metadata.clone()
}

// SignedURLOptions carries the parameters a caller of the real service must
// supply when signing a URL. The simulated URL ignores everything beyond
// validation.
type SignedURLOptions struct {
	// Method is the HTTP method the URL is signed for. Required.
	Method string
	// Expires is the expiration time of the URL. Required.
	Expires time.Time
}

// validSignedURLMethods are the HTTP methods accepted for signing.
var validSignedURLMethods = map[string]bool{
	"GET":     true,
	"HEAD":    true,
	"PUT":     true,
	"POST":    true,
	"DELETE":  true,
	"OPTIONS": true,
}

// SignedURL returns a deterministic synthetic signed URL for the object. It
// fails with ErrObjectNotExist when the object is absent and validates opts
// the way the real signer does, but the returned URL carries no real
// signature.
func (o *Object) SignedURL(opts SignedURLOptions) (string, error) {
	s := o.storage
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := o.popFaultLocked(OpSignedURL); err != nil {
		return "", err
	}
	if !o.presentLocked() {
		recordOp(string(OpSignedURL), statusError)
		return "", ErrObjectNotExist
	}
	if !validSignedURLMethods[opts.Method] {
		recordOp(string(OpSignedURL), statusError)
		return "", fmt.Errorf("gcsmock: invalid signed URL method %q", opts.Method)
	}
	if opts.Expires.IsZero() {
		recordOp(string(OpSignedURL), statusError)
		return "", fmt.Errorf("gcsmock: missing required expires option")
	}
	recordOp(string(OpSignedURL), statusSuccess)
	return fmt.Sprintf("%s/%s/%s?X-Goog-Algorithm=MOCKED", signedURLHost, o.bucket.name, o.name), nil
}
