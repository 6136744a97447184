package entity

import "testing"

func TestIsValidStatus(t *testing.T) {
	for _, s := range ValidStatuses {
		if !IsValidStatus(s) {
			t.Errorf("expected %s to be valid", s)
		}
	}
	if IsValidStatus("DONE") {
		t.Error("expected DONE to be invalid")
	}
	if IsValidStatus("") {
		t.Error("expected empty status to be invalid")
	}
}

func TestIsNormalTransition(t *testing.T) {
	cases := []struct {
		from, to RequestStatus
		want     bool
	}{
		{StatusPending, StatusAssigned, true},
		{StatusAssigned, StatusScheduled, true},
		{StatusAssigned, StatusInProgress, true},
		{StatusScheduled, StatusInProgress, true},
		{StatusInProgress, StatusResolved, true},
		{StatusResolved, StatusClosed, true},
		{StatusPending, StatusPending, true},
		{StatusClosed, StatusClosed, true},
		{StatusPending, StatusResolved, false},
		{StatusClosed, StatusPending, false},
		{StatusResolved, StatusInProgress, false},
	}
	for _, c := range cases {
		if got := IsNormalTransition(c.from, c.to); got != c.want {
			t.Errorf("IsNormalTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestMediaListScanValue(t *testing.T) {
	list := MediaList{
		{URL: "https://cdn.example.com/a.jpg", Kind: MediaKindImage},
		{URL: "https://cdn.example.com/b.mp4", Kind: MediaKindVideo},
	}
	v, err := list.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var out MediaList
	if err := out.Scan(v); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(out) != 2 || out[0].URL != list[0].URL || out[1].Kind != MediaKindVideo {
		t.Errorf("unexpected round-trip result: %+v", out)
	}

	var empty MediaList
	if err := empty.Scan(nil); err != nil {
		t.Fatalf("Scan nil failed: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("expected empty list from nil, got %+v", empty)
	}
}
