package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/jonesrussell/north-cloud/medgraph/internal/domain"
)

// JSON downloads a JSON document holding an array of objects, either at the
// top level or under Key, and decodes each object into T.
type JSON[T any] struct {
	Source  domain.SourceDescriptor
	URL     string
	Key     string
	Map     func(row T) (domain.RawRecord, bool)
	Fetcher Fetcher
}

func (j *JSON[T]) Descriptor() domain.SourceDescriptor { return j.Source }

func (j *JSON[T]) Fetch(ctx context.Context, _ domain.CountryContext) ([]domain.RawRecord, error) {
	resp, err := j.Fetcher.Fetch(ctx, j.URL)
	if err != nil {
		return nil, err
	}

	items, err := jsonItems(resp.Body, j.Key)
	if err != nil {
		return nil, err
	}

	out := make([]domain.RawRecord, 0, len(items))
	for _, item := range items {
		row, decodeErr := DecodeRow[T](item)
		if decodeErr != nil {
			continue
		}
		if rec, ok := j.Map(row); ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func jsonItems(body []byte, key string) ([]any, error) {
	if key == "" {
		var items []any
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("decode json array: %w", err)
		}
		return items, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode json object: %w", err)
	}
	raw, ok := envelope[key]
	if !ok {
		return nil, fmt.Errorf("json key %q not found", key)
	}
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode json array under %q: %w", key, err)
	}
	return items, nil
}

// DecodeRow converts a loosely typed JSON object into T using its json tags.
// Numbers sent as strings and strings sent as numbers are coerced.
func DecodeRow[T any](item any) (T, error) {
	var out T
	if _, ok := item.(map[string]any); !ok {
		return out, errors.New("row is not an object")
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return out, fmt.Errorf("create decoder: %w", err)
	}
	if err := dec.Decode(item); err != nil {
		return out, fmt.Errorf("decode row: %w", err)
	}
	return out, nil
}
