package bcif

import (
	"strconv"

	"github.com/cifkit/cifkit/internal/dispatch"
	"github.com/cifkit/cifkit/pkg/types"
)

// Mask byte values, per the shared omitted/unknown tri-state.
const (
	maskPresent = 0
	maskOmitted = 1
	maskUnknown = 2
)

// boundColumn is a decoded column tied to the registered keyword slot
// it feeds.
type boundColumn struct {
	slot int
	data Data
	mask []uint8
}

// emitCategory decodes every column bound to a registered keyword, then
// walks the rows, projecting each cell through the column's mask into
// the keyword slot and firing the row callback. Columns whose keyword
// is unregistered are left undecoded; their raw payloads were consumed
// during parsing and are simply dropped.
func emitCategory(reg *dispatch.Category, cat category, disp *dispatch.Dispatcher, opts types.ReaderOptions) error {
	bound := make([]boundColumn, 0, len(cat.columns))
	nRows := cat.rowCount
	for _, col := range cat.columns {
		idx, ok := reg.KeywordIndex(col.name)
		if !ok {
			disp.NotifyUnknownKeyword(cat.name, col.name, 0)
			continue
		}
		d, err := decodeChain(col.data.raw, col.data.chain, opts)
		if err != nil {
			return err
		}
		if d.Kind == dataRaw {
			return types.FormatError("column "+col.name+" has no decodable encoding", 0)
		}
		var mask []uint8
		if col.mask != nil {
			mask, err = decodeMask(col.mask.raw, col.mask.chain, opts)
			if err != nil {
				return err
			}
			if len(mask) != d.Len() {
				return types.FormatError("mask length disagrees with column "+col.name, 0)
			}
		}
		if nRows < 0 {
			nRows = d.Len()
		} else if d.Len() != nRows {
			return types.FormatError("columns of "+cat.name+" disagree on row count", 0)
		}
		bound = append(bound, boundColumn{slot: idx, data: d, mask: mask})
	}
	if nRows < 0 {
		return nil
	}
	for i := 0; i < nRows; i++ {
		for _, b := range bound {
			if b.mask != nil {
				switch b.mask[i] {
				case maskOmitted:
					reg.SetOmitted(b.slot)
					continue
				case maskUnknown:
					reg.SetUnknown(b.slot)
					continue
				}
			}
			deliverCell(reg, b.slot, b.data, i)
		}
		if err := reg.FireRow(0); err != nil {
			return err
		}
	}
	return nil
}

// deliverCell stores one decoded cell into a keyword slot. String
// decodes are delivered as strings regardless of the declared type
// (matching the text path, which only ever sees strings); numeric
// decodes follow the declared type, with a stringified fallback for
// keywords that opted out of typed delivery.
func deliverCell(reg *dispatch.Category, slot int, d Data, i int) {
	switch {
	case d.Kind == dataStrings:
		reg.SetString(slot, d.Strs[i])
	case d.Kind.isFloat():
		v := d.F64[i]
		switch reg.KeywordType(slot) {
		case types.CellFloat:
			reg.SetFloat(slot, v)
		case types.CellInt:
			reg.SetInt(slot, int32(v))
		default:
			reg.SetString(slot, strconv.FormatFloat(v, 'g', -1, 64))
		}
	default:
		v := d.I32[i]
		switch reg.KeywordType(slot) {
		case types.CellInt:
			reg.SetInt(slot, v)
		case types.CellFloat:
			reg.SetFloat(slot, float64(v))
		default:
			reg.SetString(slot, strconv.FormatInt(int64(v), 10))
		}
	}
}
