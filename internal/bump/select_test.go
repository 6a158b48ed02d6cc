package bump

import (
	"fmt"
	"reflect"
	"testing"
)

func TestSelect(t *testing.T) {
	for _, n := range []int{0, 1, 5} {
		ids := make([]string, n)
		for i := range ids {
			ids[i] = fmt.Sprintf("https://example.test/trade/%d", i)
		}
		listings := listingsOf(ids...)

		t.Run(fmt.Sprintf("all/%d", n), func(t *testing.T) {
			got := Select(TargetAll, listings)
			if !reflect.DeepEqual(got, listings) {
				t.Errorf("Select(All) = %v, want %v", got, listings)
			}
		})

		t.Run(fmt.Sprintf("oldest/%d", n), func(t *testing.T) {
			before := append([]Listing(nil), listings...)
			got := Select(TargetOldest, listings)

			want := n
			if want > 1 {
				want = 1
			}
			if len(got) != want {
				t.Fatalf("expected %d listings, got %d", want, len(got))
			}
			if n > 0 && got[0] != listings[n-1] {
				t.Errorf("expected last listing %v, got %v", listings[n-1], got[0])
			}
			if got == nil {
				t.Error("expected an empty slice, not nil")
			}
			if !reflect.DeepEqual(listings, before) {
				t.Errorf("input modified: %v, was %v", listings, before)
			}
		})
	}
}

func TestSelectOldestDoesNotAlias(t *testing.T) {
	listings := listingsOf("a", "b", "c")
	got := Select(TargetOldest, listings)
	got[0].ID = "changed"
	if listings[2].ID != "c" {
		t.Errorf("Select(Oldest) result aliases input: %v", listings)
	}
}
