package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hamed0406/pricealert/internal/domain"
)

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{fmt.Errorf("%w: targets[0].id is required", domain.ErrConfig), 2},
		{fmt.Errorf("%w: status 503", domain.ErrFetch), 3},
		{fmt.Errorf("%w: rename: permission denied", domain.ErrStateWrite), 4},
		{fmt.Errorf("%w: open output", domain.ErrOutput), 5},
		{errors.New("something else"), 1},
	}
	for _, c := range cases {
		if got := exitCode(c.err); got != c.want {
			t.Fatalf("exitCode(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}
