package gcsmock

import "context"

// CopyOptions configures Object.Copy.
type CopyOptions struct {
	// Metadata is overlaid on the source's metadata with a plain shallow
	// top-level overwrite before the destination is written. Note the
	// asymmetry with SetMetadata: the custom sub-map is not merged
	// key-by-key here, because Copy stores the destination through Save.
	Metadata Metadata
}

// Copy copies the object to dst. dst is classified as follows: a string is
// an object name in the same bucket; a *Bucket keeps the source's name in
// that bucket; an *Object names both the bucket and the object. Anything
// else fails with ErrInvalidDestination.
//
// Copy is a composition of the primitive operations: it downloads and reads
// the metadata of the source (inheriting ErrObjectNotExist on an absent
// source as well as any fault queued on OpDownload or OpGetMetadata), then
// writes the destination through Save (consulting the destination's OpSave
// queue). It returns the destination handle and the metadata actually
// stored.
func (o *Object) Copy(ctx context.Context, dst any, opts *CopyOptions) (*Object, Metadata, error) {
	var (
		dstBucket *Bucket
		dstName   string
	)
	switch d := dst.(type) {
	case string:
		dstBucket, dstName = o.bucket, d
	case *Bucket:
		dstBucket, dstName = d, o.name
	case *Object:
		dstBucket, dstName = d.bucket, d.name
	default:
		return nil, nil, ErrInvalidDestination
	}

	data, err := o.Download(ctx)
	if err != nil {
		return nil, nil, err
	}
	md, err := o.Metadata(ctx)
	if err != nil {
		return nil, nil, err
	}

	if opts != nil && opts.Metadata != nil {
		md = md.overlay(opts.Metadata)
	}

	target := dstBucket.Object(dstName)
	if err := target.Save(ctx, data, md); err != nil {
		return nil, nil, err
	}
	return target, md.clone(), nil
}
