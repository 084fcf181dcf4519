package mappers

import (
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
)

// reader pulls typed fields out of a Struct and keeps the first error.
type reader struct {
	s   *structpb.Struct
	err error
}

func (r *reader) field(key string) *structpb.Value {
	return r.s.GetFields()[key]
}

func (r *reader) str(key string) string {
	return r.field(key).GetStringValue()
}

func (r *reader) boolean(key string) bool {
	return r.field(key).GetBoolValue()
}

func (r *reader) int(key string) int64 {
	v := r.field(key)
	if v == nil {
		return 0
	}
	f := v.GetNumberValue()
	if f != math.Trunc(f) {
		r.fail(fmt.Errorf("mappers: %s is not an integer: %v", key, f))
		return 0
	}
	return int64(f)
}

func (r *reader) time(key string) time.Time {
	s := r.str(key)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		r.fail(fmt.Errorf("mappers: %s: %w", key, err))
	}
	return t
}

func (r *reader) timePtr(key string) *time.Time {
	if r.str(key) == "" {
		return nil
	}
	t := r.time(key)
	return &t
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// Field returns the string field key of s, "" when absent.
func Field(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}
