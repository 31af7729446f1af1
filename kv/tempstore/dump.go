package tempstore

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/docker/go-units"
	"github.com/pingcap/errors"
)

// Dump writes a table of the staged objects, one row per oid, followed by a summary line. It is meant for
// looking at a stuck transaction, not for parsing.
func (b *Buffer) Dump(w io.Writer) error {
	if b.closed {
		return ErrUseAfterClose
	}
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "OID\tLEN\tPREV_TID")
	for _, oid := range b.index.Oids() {
		rec, err := b.index.Lookup(oid)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%d\t%d\t%d\n", rec.Oid, rec.Len(), rec.PrevTid)
	}
	if err := tw.Flush(); err != nil {
		return errors.WithStack(err)
	}
	where := "memory"
	if b.ledger.Spilled() {
		where = b.ledger.Path()
	}
	_, err := fmt.Fprintf(w, "%d objects, ledger %s in %s\n",
		b.index.Len(), units.BytesSize(float64(b.ledger.Size())), where)
	return errors.WithStack(err)
}

func (b *Buffer) String() string {
	var sb strings.Builder
	if err := b.Dump(&sb); err != nil {
		return fmt.Sprintf("<staging buffer: %v>", err)
	}
	return sb.String()
}
