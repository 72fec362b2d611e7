package errdefs

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindPredicates(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"not_found", NotFoundf("no report for push %d", 42), IsNotFound, true},
		{"path_not_found", PathNotFoundf("no path %q", "a/b"), IsPathNotFound, true},
		{"invalid_filter", InvalidFilterf("unknown platform %q", "beos"), IsInvalidFilter, true},
		{"store_unavailable", StoreUnavailablef("dial timeout"), IsStoreUnavailable, true},
		{"plain_error_is_not_kinded", errors.New("boom"), IsNotFound, false},
		{"kinds_do_not_cross", NotFoundf("x"), IsPathNotFound, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.check(tc.err); got != tc.want {
				t.Fatalf("predicate on %v: got %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("resolve latest: %w", NotFoundf("no reports for repo"))
	if !IsNotFound(err) {
		t.Fatalf("expected wrapped error to stay not-found: %v", err)
	}
	if IsStoreUnavailable(err) {
		t.Fatalf("did not expect store-unavailable: %v", err)
	}
}

func TestCauseIsPreserved(t *testing.T) {
	cause := errors.New("connection refused")
	err := StoreUnavailable(fmt.Errorf("list objects: %w", cause))
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable through %v", err)
	}
	if !IsStoreUnavailable(err) {
		t.Fatalf("expected store-unavailable kind on %v", err)
	}
}

func TestNilStaysNil(t *testing.T) {
	if err := StoreUnavailable(nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if err := NotFound(nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
