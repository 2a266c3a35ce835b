// Package dispatch implements the category dispatcher: registration of
// categories/keywords with opaque per-category state,
// unknown-category/unknown-keyword notification (each site firing at
// most once), per-row slot buffering with reset between rows, and
// end-of-frame/finalize firing.
//
// Both the text interpreter and the binary row materializer drive the
// same Dispatcher, which is what gives the two wire formats identical
// callback semantics.
package dispatch

import (
	"github.com/cifkit/cifkit/internal/obslog"
	"github.com/cifkit/cifkit/internal/registry"
	"github.com/cifkit/cifkit/pkg/types"
)

// Category is one registered table: its ordered keyword slots plus the
// three optional lifecycle callbacks and opaque state.
type Category struct {
	handle  types.CatHandle
	name    string
	state   any
	release types.ReleaseFunc

	rowCb      types.RowFunc
	endFrameCb types.EndFrameFunc
	finalizer  types.FinalizeFunc

	byName *registry.Table[int] // keyword name -> index into slots
	slots  []types.Slot
	dirty  bool // at least one slot touched since the last reset
}

// Name returns the category's registered name.
func (c *Category) Name() string { return c.name }

// Handle returns the category's handle.
func (c *Category) Handle() types.CatHandle { return c.handle }

// KeywordIndex looks up a registered keyword by case-insensitive name.
func (c *Category) KeywordIndex(keyword string) (int, bool) {
	return c.byName.Get(keyword)
}

// NumKeywords returns the number of registered keywords.
func (c *Category) NumKeywords() int { return len(c.slots) }

// KeywordName returns the registered name of the keyword at idx, in
// registration order.
func (c *Category) KeywordName(idx int) string { return c.slots[idx].Name }

// KeywordType returns the declared cell type of the keyword at idx.
func (c *Category) KeywordType(idx int) types.CellType { return c.slots[idx].Type }

// SetString records a present string value for the keyword at idx.
func (c *Category) SetString(idx int, value string) {
	c.slots[idx] = types.Slot{Name: c.slots[idx].Name, Type: c.slots[idx].Type, InFile: true, Str: value}
	c.dirty = true
}

// SetInt records a present int32 value for the keyword at idx.
func (c *Category) SetInt(idx int, value int32) {
	c.slots[idx] = types.Slot{Name: c.slots[idx].Name, Type: c.slots[idx].Type, InFile: true, Int: value}
	c.dirty = true
}

// SetFloat records a present float64 value for the keyword at idx.
func (c *Category) SetFloat(idx int, value float64) {
	c.slots[idx] = types.Slot{Name: c.slots[idx].Name, Type: c.slots[idx].Type, InFile: true, Float: value}
	c.dirty = true
}

// SetOmitted marks the keyword at idx as observed with the literal '.'.
func (c *Category) SetOmitted(idx int) {
	c.slots[idx] = types.Slot{Name: c.slots[idx].Name, Type: c.slots[idx].Type, InFile: true, Omitted: true}
	c.dirty = true
}

// SetUnknown marks the keyword at idx as observed with the literal '?'.
func (c *Category) SetUnknown(idx int) {
	c.slots[idx] = types.Slot{Name: c.slots[idx].Name, Type: c.slots[idx].Type, InFile: true, Unknown: true}
	c.dirty = true
}

// Pending reports whether any slot has been touched since the last row
// reset, i.e. whether there is unflushed data that must still produce a
// row callback at the next block or save-frame boundary.
func (c *Category) Pending() bool { return c.dirty }

// reset clears every slot back to its untouched zero state, releasing
// ownership flags implicitly (slot strings are always Go strings, so
// there is no separate free step; the old value is simply dropped).
func (c *Category) reset() {
	for i := range c.slots {
		c.slots[i] = types.Slot{Name: c.slots[i].Name, Type: c.slots[i].Type}
	}
	c.dirty = false
}

// FireRow invokes the row callback (if any) with the current slot
// contents, then resets all slots. line is the 1-based text line number,
// or 0 in binary mode.
func (c *Category) FireRow(line int) error {
	if c.rowCb == nil {
		c.reset()
		return nil
	}
	view := types.RowView{Category: c.name, Slots: c.slots, Line: line}
	if err := c.rowCb(c.state, view); err != nil {
		c.reset()
		return types.CallbackError(err)
	}
	c.reset()
	return nil
}

// FireEndFrame invokes the end-of-save-frame callback, if registered.
func (c *Category) FireEndFrame() error {
	if c.endFrameCb == nil {
		return nil
	}
	if err := c.endFrameCb(c.state); err != nil {
		return types.CallbackError(err)
	}
	return nil
}

// FireFinalize invokes the finalize callback, if registered.
func (c *Category) FireFinalize() error {
	if c.finalizer == nil {
		return nil
	}
	if err := c.finalizer(c.state); err != nil {
		return types.CallbackError(err)
	}
	return nil
}

// Release invokes the category's release hook, if any, to free opaque
// user state.
func (c *Category) Release() {
	if c.release != nil {
		c.release(c.state)
	}
}

// Dispatcher holds every category registered for the lifetime of a
// reader (until ClearCategories or teardown) plus the unknown-site
// notification callbacks.
type Dispatcher struct {
	cats       *registry.Table[*Category]
	order      []*Category
	nextHandle types.CatHandle

	unknownCat types.UnknownCategoryFunc
	unknownKey types.UnknownKeywordFunc

	seenUnknownCat map[string]bool
	seenUnknownKey map[string]bool
}

// New returns an empty dispatcher.
func New() *Dispatcher {
	return &Dispatcher{
		cats:           registry.New[*Category](),
		seenUnknownCat: make(map[string]bool),
		seenUnknownKey: make(map[string]bool),
	}
}

// RegisterCategory adds (or replaces) a category. Registering an
// existing name releases its prior state and starts fresh.
func (d *Dispatcher) RegisterCategory(name string, rowCb types.RowFunc, endFrameCb types.EndFrameFunc, finalizeCb types.FinalizeFunc, state any, release types.ReleaseFunc) types.CatHandle {
	if prior, ok := d.cats.Get(name); ok {
		prior.Release()
		d.removeFromOrder(prior)
	}
	d.nextHandle++
	cat := &Category{
		handle:     d.nextHandle,
		name:       name,
		state:      state,
		release:    release,
		rowCb:      rowCb,
		endFrameCb: endFrameCb,
		finalizer:  finalizeCb,
		byName:     registry.New[int](),
	}
	d.cats.Put(name, cat)
	d.order = append(d.order, cat)
	return cat.handle
}

// RegisterKeyword adds a keyword to the category previously returned by
// RegisterCategory. A second registration of the same name replaces the
// slot at the same index.
func (d *Dispatcher) RegisterKeyword(handle types.CatHandle, name string, typ types.CellType) {
	cat := d.byHandle(handle)
	if cat == nil {
		return
	}
	if idx, ok := cat.byName.Get(name); ok {
		cat.slots[idx] = types.Slot{Name: name, Type: typ}
		return
	}
	cat.byName.Put(name, len(cat.slots))
	cat.slots = append(cat.slots, types.Slot{Name: name, Type: typ})
}

// SetUnknownCategoryCallback installs the callback fired the first time an
// unregistered category is referenced.
func (d *Dispatcher) SetUnknownCategoryCallback(fn types.UnknownCategoryFunc) {
	d.unknownCat = fn
}

// SetUnknownKeywordCallback installs the callback fired the first time an
// unregistered keyword of a registered category is referenced.
func (d *Dispatcher) SetUnknownKeywordCallback(fn types.UnknownKeywordFunc) {
	d.unknownKey = fn
}

// ClearCategories releases every registered category's opaque state and
// drops all registrations and unknown-site callbacks.
func (d *Dispatcher) ClearCategories() {
	d.cats.Each(func(_ string, cat *Category) { cat.Release() })
	d.cats.Reset()
	d.order = nil
	d.unknownCat = nil
	d.unknownKey = nil
	d.seenUnknownCat = make(map[string]bool)
	d.seenUnknownKey = make(map[string]bool)
}

// Lookup finds a registered category by case-insensitive name.
func (d *Dispatcher) Lookup(category string) (*Category, bool) {
	return d.cats.Get(category)
}

// Each visits every registered category. Order across categories is
// unspecified for callers; this implementation follows registration
// order.
func (d *Dispatcher) Each(fn func(*Category) error) error {
	for _, cat := range d.order {
		if err := fn(cat); err != nil {
			return err
		}
	}
	return nil
}

// NotifyUnknownCategory fires the unknown-category callback the first
// time the given name is seen; later occurrences are silent.
func (d *Dispatcher) NotifyUnknownCategory(name string, line int) {
	key := lowerKey(name)
	if d.seenUnknownCat[key] {
		return
	}
	d.seenUnknownCat[key] = true
	obslog.L().Debug("unknown category", "category", name, "line", line)
	if d.unknownCat != nil {
		d.unknownCat(name, line)
	}
}

// NotifyUnknownKeyword fires the unknown-keyword callback the first time
// the (category, keyword) pair is seen; later occurrences are silent.
func (d *Dispatcher) NotifyUnknownKeyword(category, keyword string, line int) {
	key := lowerKey(category) + "." + lowerKey(keyword)
	if d.seenUnknownKey[key] {
		return
	}
	d.seenUnknownKey[key] = true
	obslog.L().Debug("unknown keyword", "category", category, "keyword", keyword, "line", line)
	if d.unknownKey != nil {
		d.unknownKey(category, keyword, line)
	}
}

func (d *Dispatcher) byHandle(handle types.CatHandle) *Category {
	for _, cat := range d.order {
		if cat.handle == handle {
			return cat
		}
	}
	return nil
}

func (d *Dispatcher) removeFromOrder(cat *Category) {
	for i, c := range d.order {
		if c == cat {
			d.order = append(d.order[:i], d.order[i+1:]...)
			return
		}
	}
}

func lowerKey(s string) string {
	hasUpper := false
	for i := 0; i < len(s); i++ {
		if 'A' <= s[i] && s[i] <= 'Z' {
			hasUpper = true
			break
		}
	}
	if !hasUpper {
		return s
	}
	b := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		b[i] = c
	}
	return string(b)
}
