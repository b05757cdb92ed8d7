package processor

// ResolveTransform picks the resize for an image. The order of the checks
// is product policy: thumbnails first, then anything already within budget
// is only re-oriented, then the long side decides the scale axis.
func ResolveTransform(width, height, maxPixel, maxByte int, thumb bool, currentBytes int) Transform {
	switch {
	case thumb:
		return Transform{Kind: TransformThumbnail, MaxPixel: maxPixel}
	case currentBytes <= maxByte:
		return Transform{Kind: TransformPassthroughRotateOnly}
	case width > height:
		return Transform{Kind: TransformScaleToWidth, MaxPixel: maxPixel}
	case height > width:
		return Transform{Kind: TransformScaleToHeight, MaxPixel: maxPixel}
	default:
		return Transform{Kind: TransformScaleToSquare, MaxPixel: maxPixel}
	}
}

// ResolveJobTransform evaluates ResolveTransform against a job and the
// metadata of its current buffer.
func ResolveJobTransform(job ImageJob, meta Metadata) Transform {
	return ResolveTransform(meta.Width, meta.Height, job.MaxPixel, job.MaxByte, job.Thumb, len(job.Buffer))
}
