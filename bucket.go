package gcsmock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Bucket is a simulated bucket: a named namespace of objects. Membership in
// the bucket's member set is the sole existence signal for an object;
// resolving a handle with Object never makes the object exist.
type Bucket struct {
	name    string
	storage *Storage

	// handles caches every Object handle ever resolved for this bucket so
	// repeated lookups are identity-stable. A cached handle is not
	// necessarily a member.
	handles map[string]*Object
	// members is the existence set; order preserves membership insertion
	// order for listing.
	members map[string]bool
	order   []string
}

// Name returns the bucket's name.
func (b *Bucket) Name() string {
	return b.name
}

// URI returns the bucket's gs:// resource identifier.
func (b *Bucket) URI() string {
	return "gs://" + b.name
}

// Object returns the handle for the named object, constructing one with
// empty contents and default metadata on first access. The returned handle
// does not exist until a mutating operation runs on it. Object never fails.
func (b *Bucket) Object(name string) *Object {
	s := b.storage
	s.mu.Lock()
	defer s.mu.Unlock()

	return b.objectLocked(name)
}

// SeedObject resolves the named object's handle and immediately inserts it
// into the member set, so Exists reports true without any prior mutation.
// An administrative primitive for "assume this object exists" test setups.
func (b *Bucket) SeedObject(name string) *Object {
	s := b.storage
	s.mu.Lock()
	defer s.mu.Unlock()

	o := b.objectLocked(name)
	b.markPresentLocked(name)
	return o
}

// objectLocked implements handle resolution. The caller must hold the
// storage lock.
func (b *Bucket) objectLocked(name string) *Object {
	if o, ok := b.handles[name]; ok {
		return o
	}
	o := newObject(b, name)
	b.handles[name] = o
	return o
}

// markPresentLocked inserts name into the member set, recording insertion
// order. Idempotent. The caller must hold the storage lock.
func (b *Bucket) markPresentLocked(name string) {
	if b.members[name] {
		return
	}
	b.members[name] = true
	b.order = append(b.order, name)
}

// markAbsentLocked removes name from the member set and the order slice.
// The caller must hold the storage lock.
func (b *Bucket) markAbsentLocked(name string) {
	if !b.members[name] {
		return
	}
	delete(b.members, name)
	for i, n := range b.order {
		if n == name {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Put unconditionally replaces (or creates) the object at name with a fresh
// default-state handle, marks it a member, then applies Save semantics for
// contents (when non-nil) and SetMetadata merge semantics for md (when
// non-nil). Put is an administrative setup primitive: it bypasses every
// fault queue and never fails. Previously resolved handles for name are
// detached by the replacement.
func (b *Bucket) Put(name string, contents []byte, md Metadata) *Object {
	s := b.storage
	s.mu.Lock()
	defer s.mu.Unlock()

	o := newObject(b, name)
	b.handles[name] = o
	b.markPresentLocked(name)

	if contents != nil {
		o.contents = append([]byte(nil), contents...)
		recordBytesStored(len(contents))
	}
	if md != nil {
		o.metadata = o.metadata.merge(md)
	}

	recordOp("put", statusSuccess)
	return o
}

// UploadOptions configures Bucket.Upload.
type UploadOptions struct {
	// Destination names the object to create. When nil, the base name of
	// the source path is used. Only a plain string is accepted; a rich
	// handle fails with ErrUnsupportedDestination.
	Destination any
	// Metadata is applied to the created object with SetMetadata merge
	// semantics.
	Metadata Metadata
}

// Upload reads all bytes from the file at sourcePath and stores them via
// Put. It returns the resulting handle and the metadata actually stored.
func (b *Bucket) Upload(ctx context.Context, sourcePath string, opts *UploadOptions) (*Object, Metadata, error) {
	name := ""
	var md Metadata
	if opts != nil {
		if opts.Destination != nil {
			s, ok := opts.Destination.(string)
			if !ok {
				return nil, nil, ErrUnsupportedDestination
			}
			name = s
		}
		md = opts.Metadata
	}
	if name == "" {
		name = filepath.Base(sourcePath)
	}

	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading upload source: %w", err)
	}

	o := b.Put(name, data, md)
	return o, o.metadataSnapshot(), nil
}

// Objects returns every member object whose name starts with prefix (all
// members when prefix is empty), in membership insertion order. Objects
// never fails.
func (b *Bucket) Objects(prefix string) []*Object {
	s := b.storage
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Object
	for _, name := range b.order {
		if strings.HasPrefix(name, prefix) {
			out = append(out, b.handles[name])
		}
	}
	return out
}

// DeleteObjects removes every member object whose name starts with prefix
// (all members when prefix is empty) from the member set. Handles stay
// cached; matching zero objects is not an error.
func (b *Bucket) DeleteObjects(prefix string) {
	s := b.storage
	s.mu.Lock()
	defer s.mu.Unlock()

	names := append([]string(nil), b.order...)
	for _, name := range names {
		if strings.HasPrefix(name, prefix) {
			b.markAbsentLocked(name)
		}
	}
	recordOp("deleteObjects", statusSuccess)
}
