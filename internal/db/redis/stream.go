package redis

import (
	"context"
	"errors"
	"slices"
	"strconv"

	"github.com/kailas-cloud/ragsearch/internal/db"
)

// StreamAppend runs XADD with approximate MAXLEN trimming and returns the entry id.
// Fields are written in key order so entries are reproducible.
func (s *Store) StreamAppend(
	ctx context.Context, stream string, maxLen int64, fields map[string]string,
) (string, error) {
	if len(fields) == 0 {
		return "", errors.New("stream entry requires at least one field")
	}

	args := make([]string, 0, 4+2*len(fields))
	if maxLen > 0 {
		args = append(args, "MAXLEN", "~", strconv.FormatInt(maxLen, 10))
	}
	args = append(args, "*")

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		args = append(args, k, fields[k])
	}

	cmd := s.b().Arbitrary("XADD").Keys(stream).Args(args...).Build()
	id, err := s.do(ctx, cmd).ToString()
	if err != nil {
		return "", &db.Error{Op: db.OpXAdd, Err: err}
	}
	return id, nil
}
