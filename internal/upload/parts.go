package upload

// part is one contiguous byte range of a payload. Number is 1-based and fixed
// by position before any transfer starts.
type part struct {
	Number int32
	Body   []byte
}

// splitParts slices payload into partSize chunks; the final chunk holds the
// remainder. A payload no larger than partSize yields exactly one part. The
// returned bodies alias payload.
func splitParts(payload []byte, partSize int64) []part {
	if len(payload) == 0 || partSize <= 0 {
		return nil
	}
	total := int64(len(payload))
	count := (total + partSize - 1) / partSize
	parts := make([]part, 0, count)
	for i := int64(0); i < count; i++ {
		start := i * partSize
		end := min(start+partSize, total)
		parts = append(parts, part{
			Number: int32(i + 1),
			Body:   payload[start:end],
		})
	}
	return parts
}
