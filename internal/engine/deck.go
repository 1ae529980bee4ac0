package engine

import (
	"io"
	"strings"
)

// Deck is an ordered list of keyword blocks forming a solver input
// file. Blocks are opaque strings; anchored insertion is how the
// pipeline patches directives into decks built elsewhere.
type Deck struct {
	blocks []string
}

// NewDeck builds a deck from the given blocks, copying the slice.
func NewDeck(blocks ...string) *Deck {
	d := &Deck{blocks: make([]string, len(blocks))}
	copy(d.blocks, blocks)
	return d
}

// Blocks returns a copy of the block list.
func (d *Deck) Blocks() []string {
	out := make([]string, len(d.blocks))
	copy(out, d.blocks)
	return out
}

// Len reports the number of blocks.
func (d *Deck) Len() int { return len(d.blocks) }

// Append adds blocks at the end of the deck.
func (d *Deck) Append(blocks ...string) {
	d.blocks = append(d.blocks, blocks...)
}

func (d *Deck) findAnchor(anchor string) int {
	needle := strings.ToLower(anchor)
	for i, b := range d.blocks {
		if strings.Contains(strings.ToLower(b), needle) {
			return i
		}
	}
	return -1
}

func (d *Deck) insertAt(i int, block string) {
	d.blocks = append(d.blocks, "")
	copy(d.blocks[i+1:], d.blocks[i:])
	d.blocks[i] = block
}

// InsertBefore places block ahead of the first block containing anchor,
// matched case-insensitively. It reports whether the anchor was found.
func (d *Deck) InsertBefore(anchor, block string) bool {
	i := d.findAnchor(anchor)
	if i < 0 {
		return false
	}
	d.insertAt(i, block)
	return true
}

// InsertAfter places block after the first block containing anchor.
func (d *Deck) InsertAfter(anchor, block string) bool {
	i := d.findAnchor(anchor)
	if i < 0 {
		return false
	}
	d.insertAt(i+1, block)
	return true
}

// WriteTo writes the blocks in order, each terminated with a newline.
func (d *Deck) WriteTo(w io.Writer) (int64, error) {
	var n int64
	for _, b := range d.blocks {
		if !strings.HasSuffix(b, "\n") {
			b += "\n"
		}
		m, err := io.WriteString(w, b)
		n += int64(m)
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// String renders the whole deck.
func (d *Deck) String() string {
	var sb strings.Builder
	d.WriteTo(&sb)
	return sb.String()
}
