package value

// TransformRecord returns a copy of record with every value normalized and
// the native identifier key renamed to PublicIDField. The input is not modified.
func TransformRecord(record map[string]any) map[string]any {
	if record == nil {
		return nil
	}

	out := make(map[string]any, len(record))
	for k, v := range record {
		if k == NativeIDField {
			k = PublicIDField
		}
		out[k] = Normalize(v)
	}
	return out
}
