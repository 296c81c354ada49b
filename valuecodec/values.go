package valuecodec

// Whole-column helpers over Writer and Reader: encode a typed slice with an
// optional null set in one call, or decode a buffer back into values plus
// the null mask. Producers assembling blocks incrementally should use Writer
// directly.

func applyNulls(w *Writer, nulls []int) {
	for _, pos := range nulls {
		w.SetNull(pos)
	}
}

// EncodeStrings builds a STRING buffer from values, marking the listed
// positions null.
func EncodeStrings(values []string, nulls []int) ([]byte, error) {
	return encodeStringKind(KindString, values, nulls)
}

func encodeStringKind(kind Kind, values []string, nulls []int) ([]byte, error) {
	w, err := NewWriter(kind, len(values)+1)
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		v := v
		if err := w.WriteString(len(v), func(dst []byte) int {
			return copy(dst, v)
		}); err != nil {
			return nil, err
		}
	}
	applyNulls(w, nulls)
	return w.Bytes(), nil
}

// EncodeBytes builds a BYTES buffer.
func EncodeBytes(values [][]byte, nulls []int) ([]byte, error) {
	w, err := NewWriter(KindBytes, len(values)+1)
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		v := v
		if err := w.WriteBytes(len(v), func(dst []byte) int {
			return copy(dst, v)
		}); err != nil {
			return nil, err
		}
	}
	applyNulls(w, nulls)
	return w.Bytes(), nil
}

// EncodeInt32s builds an INT32 buffer.
func EncodeInt32s(values []int32, nulls []int) ([]byte, error) {
	w, err := NewWriter(KindInt32, len(values)+1)
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		if err := w.WriteInt32(v); err != nil {
			return nil, err
		}
	}
	applyNulls(w, nulls)
	return w.Bytes(), nil
}

// EncodeInt64s builds an INT64 buffer.
func EncodeInt64s(values []int64, nulls []int) ([]byte, error) {
	w, err := NewWriter(KindInt64, len(values)+1)
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		if err := w.WriteInt64(v); err != nil {
			return nil, err
		}
	}
	applyNulls(w, nulls)
	return w.Bytes(), nil
}

// EncodeUint32s builds a UINT32 buffer.
func EncodeUint32s(values []uint32, nulls []int) ([]byte, error) {
	w, err := NewWriter(KindUint32, len(values)+1)
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		if err := w.WriteUint32(v); err != nil {
			return nil, err
		}
	}
	applyNulls(w, nulls)
	return w.Bytes(), nil
}

// EncodeUint64s builds a UINT64 buffer.
func EncodeUint64s(values []uint64, nulls []int) ([]byte, error) {
	w, err := NewWriter(KindUint64, len(values)+1)
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		if err := w.WriteUint64(v); err != nil {
			return nil, err
		}
	}
	applyNulls(w, nulls)
	return w.Bytes(), nil
}

// EncodeDoubles builds a DOUBLE buffer.
func EncodeDoubles(values []float64, nulls []int) ([]byte, error) {
	w, err := NewWriter(KindDouble, len(values)+1)
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		if err := w.WriteDouble(v); err != nil {
			return nil, err
		}
	}
	applyNulls(w, nulls)
	return w.Bytes(), nil
}

// EncodeFloats builds a FLOAT buffer.
func EncodeFloats(values []float32, nulls []int) ([]byte, error) {
	w, err := NewWriter(KindFloat, len(values)+1)
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		if err := w.WriteFloat(v); err != nil {
			return nil, err
		}
	}
	applyNulls(w, nulls)
	return w.Bytes(), nil
}

// EncodeBools builds a BOOL buffer.
func EncodeBools(values []bool, nulls []int) ([]byte, error) {
	w, err := NewWriter(KindBool, len(values)+1)
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		if err := w.WriteBool(v); err != nil {
			return nil, err
		}
	}
	applyNulls(w, nulls)
	return w.Bytes(), nil
}

// DecodeStrings reads back every string item with its null bit. The
// returned strings are copies, safe to keep after the buffer is gone.
func DecodeStrings(buf []byte) ([]string, []bool, error) {
	r, err := NewReader(buf)
	if err != nil {
		return nil, nil, err
	}
	var (
		values []string
		nulls  []bool
	)
	for {
		v, isNull, st := r.ReadStringNullable()
		if st != OK {
			break
		}
		values = append(values, string(v))
		nulls = append(nulls, isNull)
	}
	return values, nulls, nil
}

// DecodeInt32s reads back every int32 item with its null bit.
func DecodeInt32s(buf []byte) ([]int32, []bool, error) {
	r, err := NewReader(buf)
	if err != nil {
		return nil, nil, err
	}
	var (
		values []int32
		nulls  []bool
	)
	for {
		v, isNull, st := r.ReadInt32Nullable()
		if st != OK {
			break
		}
		values = append(values, v)
		nulls = append(nulls, isNull)
	}
	return values, nulls, nil
}

// DecodeInt64s reads back every int64 item with its null bit.
func DecodeInt64s(buf []byte) ([]int64, []bool, error) {
	r, err := NewReader(buf)
	if err != nil {
		return nil, nil, err
	}
	var (
		values []int64
		nulls  []bool
	)
	for {
		v, isNull, st := r.ReadInt64Nullable()
		if st != OK {
			break
		}
		values = append(values, v)
		nulls = append(nulls, isNull)
	}
	return values, nulls, nil
}

// DecodeDoubles reads back every float64 item with its null bit.
func DecodeDoubles(buf []byte) ([]float64, []bool, error) {
	r, err := NewReader(buf)
	if err != nil {
		return nil, nil, err
	}
	var (
		values []float64
		nulls  []bool
	)
	for {
		v, isNull, st := r.ReadDoubleNullable()
		if st != OK {
			break
		}
		values = append(values, v)
		nulls = append(nulls, isNull)
	}
	return values, nulls, nil
}

// DecodeBools reads back every bool item with its null bit.
func DecodeBools(buf []byte) ([]bool, []bool, error) {
	r, err := NewReader(buf)
	if err != nil {
		return nil, nil, err
	}
	var (
		values []bool
		nulls  []bool
	)
	for {
		v, isNull, st := r.ReadBoolNullable()
		if st != OK {
			break
		}
		values = append(values, v)
		nulls = append(nulls, isNull)
	}
	return values, nulls, nil
}
