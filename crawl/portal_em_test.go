package crawl

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// fakeElement is one DOM node scope for extractor tests.
type fakeElement struct {
	texts   map[string]string
	lists   map[string][]string
	present map[string]bool
	clicked []string
	onClick func(selector string)
}

func (e *fakeElement) Text(ctx context.Context, selector string) (string, error) {
	if v, ok := e.texts[selector]; ok {
		return v, nil
	}
	return "", fmt.Errorf("no match for %s", selector)
}

func (e *fakeElement) Texts(ctx context.Context, selector string) ([]string, error) {
	if v, ok := e.lists[selector]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("no match for %s", selector)
}

func (e *fakeElement) Has(ctx context.Context, selector string) (bool, error) {
	return e.present[selector], nil
}

func (e *fakeElement) Click(ctx context.Context, selector string) error {
	e.clicked = append(e.clicked, selector)
	if e.onClick != nil {
		e.onClick(selector)
	}
	return nil
}

func (e *fakeElement) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if e.present[selector] {
		return nil
	}
	return fmt.Errorf("timeout waiting for %s", selector)
}

func tableRow(cells ...string) Element {
	return &fakeElement{lists: map[string][]string{"td": cells}}
}

func tableFrame(rows ...Element) *fakeFrame {
	f := newFakeFrame()
	f.elements[emRows] = rows
	return f
}

func TestEMExtract_MatchingRow(t *testing.T) {
	f := tableFrame(
		tableRow("x", "MS-7", "Other Paper", "n/a", "2023-12-01", "Rejected"),
		tableRow("x", "MS-42", "Paper Title", "n/a", "2024-01-01", "Under Review"),
	)

	st := emPortal{}.Extract(context.Background(), f, "MS-42")
	if st.Ref != "MS-42" {
		t.Errorf("ref = %q", st.Ref)
	}
	if st.Title != "Paper Title" {
		t.Errorf("title = %q", st.Title)
	}
	if st.Status != "Under Review" {
		t.Errorf("status = %q", st.Status)
	}
	if st.Modified != "2024-01-01" {
		t.Errorf("modified = %q", st.Modified)
	}
}

func TestEMExtract_NoMatchYieldsRefOnly(t *testing.T) {
	// WHAT: An unmatched submission is a valid observation, not an error:
	// only Ref is populated.
	f := tableFrame(tableRow("x", "MS-7", "Other Paper", "n/a", "2023-12-01", "Rejected"))

	st := emPortal{}.Extract(context.Background(), f, "MS-42")
	if st.Ref != "MS-42" || st.Title != "" || st.Status != "" || st.Modified != "" {
		t.Errorf("state = %+v, want ref only", st)
	}
}

func TestEMExtract_EmptyTable(t *testing.T) {
	st := emPortal{}.Extract(context.Background(), newFakeFrame(), "MS-42")
	if st.Ref != "MS-42" || st.Title != "" {
		t.Errorf("state = %+v, want ref only", st)
	}
}

func TestEMExtract_ShortRowsSkipped(t *testing.T) {
	// Vendor pages sometimes render spacer rows with fewer cells.
	f := tableFrame(
		tableRow("spacer"),
		tableRow("x", "MS-42", "Paper Title", "n/a", "2024-01-01", "Under Review"),
	)

	st := emPortal{}.Extract(context.Background(), f, "MS-42")
	if st.Title != "Paper Title" {
		t.Errorf("title = %q", st.Title)
	}
}

func TestEMExtract_TrimsAndStripsMarkup(t *testing.T) {
	f := tableFrame(tableRow("x", "  MS-42\n", " Paper <b>Title</b> ", "n/a", "\t2024-01-01 ", " Under Review\n"))

	st := emPortal{}.Extract(context.Background(), f, "MS-42")
	if st.Title != "Paper Title" {
		t.Errorf("title = %q", st.Title)
	}
	if st.Status != "Under Review" || st.Modified != "2024-01-01" {
		t.Errorf("state = %+v", st)
	}
}

func TestEMExtract_Idempotent(t *testing.T) {
	// WHAT: Extracting twice from an unchanged DOM yields identical states.
	f := tableFrame(tableRow("x", "MS-42", "Paper Title", "n/a", "2024-01-01", "Under Review"))

	first := emPortal{}.Extract(context.Background(), f, "MS-42")
	second := emPortal{}.Extract(context.Background(), f, "MS-42")
	if first != second {
		t.Errorf("first = %+v, second = %+v", first, second)
	}
}
