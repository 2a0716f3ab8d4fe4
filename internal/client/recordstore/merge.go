package recordstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotObject payload не является JSON-объектом
var ErrNotObject = errors.New("payload is not a JSON object")

// FieldMerge сливает JSON-объекты по полям верхнего уровня:
// поля remote перекрывают поля local, остальные поля local сохраняются.
func FieldMerge(local, remote []byte) ([]byte, error) {
	l, err := decodeObject(local)
	if err != nil {
		return nil, fmt.Errorf("local: %w", err)
	}
	r, err := decodeObject(remote)
	if err != nil {
		return nil, fmt.Errorf("remote: %w", err)
	}

	for k, v := range r {
		l[k] = v
	}

	return json.Marshal(l)
}

// SumMerge складывает числовые поля верхнего уровня, остальные поля
// сливаются как в FieldMerge. Подходит для коллекций, где payload - приращение
// (например, движения остатков).
func SumMerge(local, remote []byte) ([]byte, error) {
	l, err := decodeObject(local)
	if err != nil {
		return nil, fmt.Errorf("local: %w", err)
	}
	r, err := decodeObject(remote)
	if err != nil {
		return nil, fmt.Errorf("remote: %w", err)
	}

	for k, rv := range r {
		rn, rok := rv.(json.Number)
		ln, lok := l[k].(json.Number)
		if !rok || !lok {
			l[k] = rv
			continue
		}

		sum, err := addNumbers(ln, rn)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		l[k] = sum
	}

	return json.Marshal(l)
}

func addNumbers(a, b json.Number) (json.Number, error) {
	ai, aerr := a.Int64()
	bi, berr := b.Int64()
	if aerr == nil && berr == nil {
		return json.Number(fmt.Sprintf("%d", ai+bi)), nil
	}

	af, err := a.Float64()
	if err != nil {
		return "", err
	}
	bf, err := b.Float64()
	if err != nil {
		return "", err
	}
	return json.Number(fmt.Sprintf("%g", af+bf)), nil
}

func decodeObject(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return map[string]any{}, nil
	}

	var obj map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, ErrNotObject
	}
	return obj, nil
}
