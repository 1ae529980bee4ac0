package engine

import (
	"strings"
	"testing"
)

func TestDeckInsertBefore(t *testing.T) {
	d := NewDeck("*Heading", "** STEP: Step-1\n*Step", "*End Step")
	if !d.InsertBefore("** STEP: Step-1", "*IMPERFECTION") {
		t.Fatal("anchor should be found")
	}
	got := d.Blocks()
	want := []string{"*Heading", "*IMPERFECTION", "** STEP: Step-1\n*Step", "*End Step"}
	if len(got) != len(want) {
		t.Fatalf("blocks = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("block %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDeckInsertAfter(t *testing.T) {
	d := NewDeck("*Heading", "*Boundary", "*End Step")
	if !d.InsertAfter("*Boundary", "*Cload") {
		t.Fatal("anchor should be found")
	}
	if got := d.Blocks()[2]; got != "*Cload" {
		t.Errorf("block 2 = %q, want *Cload", got)
	}
}

func TestDeckAnchorCaseInsensitive(t *testing.T) {
	d := NewDeck("** step: STEP-1")
	if !d.InsertBefore("** STEP: Step-1", "x") {
		t.Error("anchor match must ignore case")
	}
}

func TestDeckAnchorFirstHitWins(t *testing.T) {
	d := NewDeck("*Step one", "*Step two")
	d.InsertBefore("*Step", "marker")
	if d.Blocks()[0] != "marker" {
		t.Errorf("blocks = %v, want marker first", d.Blocks())
	}
}

func TestDeckMissingAnchor(t *testing.T) {
	d := NewDeck("*Heading")
	if d.InsertBefore("nope", "x") {
		t.Error("missing anchor must report false")
	}
	if d.Len() != 1 {
		t.Errorf("failed insert must not change the deck, len = %d", d.Len())
	}
}

func TestDeckWriteTo(t *testing.T) {
	d := NewDeck("*Heading", "*Step\n")
	var sb strings.Builder
	if _, err := d.WriteTo(&sb); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}
	if sb.String() != "*Heading\n*Step\n" {
		t.Errorf("WriteTo() = %q", sb.String())
	}
}

func TestDeckBlocksIsCopy(t *testing.T) {
	d := NewDeck("a", "b")
	d.Blocks()[0] = "mutated"
	if d.Blocks()[0] != "a" {
		t.Error("Blocks() must not expose the backing array")
	}
}
