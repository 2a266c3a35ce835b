package text

import (
	"io"
	"strings"

	"github.com/cifkit/cifkit/internal/dispatch"
	"github.com/cifkit/cifkit/pkg/types"
)

// Interpreter drives the data_/loop_/variable/save-frame state machine,
// pulling tokens from a Tokenizer and routing
// matched values into a dispatch.Dispatcher. It implements component J's
// per-call contract: one ReadBlock call advances through exactly one data
// block, stopping (and ungetting the next data_ token) when a second block
// header is seen.
type Interpreter struct {
	tok  *Tokenizer
	disp *dispatch.Dispatcher
}

// NewInterpreter wraps tok and disp in a block interpreter.
func NewInterpreter(tok *Tokenizer, disp *dispatch.Dispatcher) *Interpreter {
	return &Interpreter{tok: tok, disp: disp}
}

// ReadBlock advances through one data_ block. more reports whether another
// data_ token was found and ungotten for the next call.
func (in *Interpreter) ReadBlock() (more bool, err error) {
	seenBlock := false
	for {
		tok, err := in.tok.Next(true)
		if err == io.EOF {
			if seenBlock {
				return false, in.flushEndOfBlock()
			}
			return false, nil
		}
		if err != nil {
			return false, err
		}
		switch tok.Kind {
		case KindDataBlock:
			if seenBlock {
				in.tok.Unget(tok)
				return true, in.flushEndOfBlock()
			}
			seenBlock = true
		case KindVariable:
			if err := in.handleVariable(tok); err != nil {
				return false, err
			}
		case KindLoop:
			if err := in.handleLoop(); err != nil {
				return false, err
			}
		case KindSaveFrame:
			if err := in.handleSaveFrame(tok); err != nil {
				return false, err
			}
		default:
			// Stray Value/Omitted/Unknown outside a variable or loop
			// context; the grammar doesn't produce these at top level
			// for well-formed input, so ignore rather than error.
		}
	}
}

// flushEndOfBlock fires the row callback for any category with pending
// unflushed data (e.g. a single-valued category ended by EOF), then the
// finalize callback for every registered category.
func (in *Interpreter) flushEndOfBlock() error {
	line := in.tok.LineNo()
	if err := in.disp.Each(func(cat *dispatch.Category) error {
		if cat.Pending() {
			return cat.FireRow(line)
		}
		return nil
	}); err != nil {
		return err
	}
	return in.disp.Each(func(cat *dispatch.Category) error {
		return cat.FireFinalize()
	})
}

// handleVariable processes a single "_category.keyword value" statement.
func (in *Interpreter) handleVariable(tok Token) error {
	line := in.tok.LineNo()
	category, keyword, ok := splitVariable(tok.Text)
	if !ok {
		return types.FormatError("variable name missing '.'", line)
	}
	cat, found := in.disp.Lookup(category)
	if !found {
		in.disp.NotifyUnknownCategory(category, line)
		_, err := in.readValueToken(true)
		return err
	}
	idx, found := cat.KeywordIndex(keyword)
	if !found {
		in.disp.NotifyUnknownKeyword(category, keyword, line)
		_, err := in.readValueToken(true)
		return err
	}
	val, err := in.readValueToken(false)
	if err != nil {
		return err
	}
	applyValue(cat, idx, val)
	return nil
}

// readValueToken reads the next token and requires it to be Value,
// Omitted, or Unknown.
func (in *Interpreter) readValueToken(ignoreMultiline bool) (Token, error) {
	val, err := in.tok.Next(ignoreMultiline)
	if err != nil {
		return Token{}, err
	}
	if !isValueClass(val) {
		return Token{}, types.FormatError("expected value after variable", in.tok.LineNo())
	}
	return val, nil
}

// applyValue stores a Value/Omitted/Unknown token in the category's
// keyword slot at idx. Text mode always delivers strings; the binary
// path is the only one that ever stores typed int/float cells.
func applyValue(cat *dispatch.Category, idx int, tok Token) {
	switch tok.Kind {
	case KindOmitted:
		cat.SetOmitted(idx)
	case KindUnknown:
		cat.SetUnknown(idx)
	default:
		cat.SetString(idx, tok.Text)
	}
}

// handleSaveFrame toggles save-frame state. On the closing save_, it
// fires end-of-frame callbacks for every registered category, then fires
// row callbacks for any category that accumulated data inside the frame.
func (in *Interpreter) handleSaveFrame(tok Token) error {
	if tok.Text != "" {
		return nil // opening save_<name>; nothing to flush yet
	}
	line := in.tok.LineNo()
	if err := in.disp.Each(func(cat *dispatch.Category) error {
		return cat.FireEndFrame()
	}); err != nil {
		return err
	}
	return in.disp.Each(func(cat *dispatch.Category) error {
		if cat.Pending() {
			return cat.FireRow(line)
		}
		return nil
	})
}

// handleLoop implements the loop subroutine: read a run
// of same-category Variable headers, then pull rows of exactly that many
// value-class tokens until a short read signals the loop body's end.
func (in *Interpreter) handleLoop() error {
	line := in.tok.LineNo()
	var (
		headerCat string
		cat       *dispatch.Category
		slots     []int
	)
	for {
		tok, err := in.tok.Next(true)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if tok.Kind != KindVariable {
			in.tok.Unget(tok)
			break
		}
		category, keyword, ok := splitVariable(tok.Text)
		if !ok {
			return types.FormatError("variable name missing '.'", in.tok.LineNo())
		}
		if headerCat == "" {
			headerCat = category
			if c, found := in.disp.Lookup(category); found {
				cat = c
			} else {
				in.disp.NotifyUnknownCategory(category, in.tok.LineNo())
			}
		} else if !strings.EqualFold(category, headerCat) {
			return types.FormatError("loop_ mixes categories", in.tok.LineNo())
		}
		if cat == nil {
			slots = append(slots, -1)
			continue
		}
		if idx, found := cat.KeywordIndex(keyword); found {
			slots = append(slots, idx)
		} else {
			in.disp.NotifyUnknownKeyword(category, keyword, in.tok.LineNo())
			slots = append(slots, -1)
		}
	}
	if len(slots) == 0 {
		return types.FormatError("loop_ with no header variables", line)
	}

	peek, err := in.tok.Next(false)
	if err == io.EOF {
		return nil // legal, if unusual: an empty loop body
	}
	if err != nil {
		return err
	}
	if !isValueClass(peek) {
		return types.FormatError("loop_ body must start with a value", in.tok.LineNo())
	}
	in.tok.Unget(peek)

	nCols := len(slots)
	for {
		first, err := in.tok.Next(false)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if !isValueClass(first) {
			in.tok.Unget(first)
			return nil
		}
		cells := make([]Token, nCols)
		cells[0] = first
		for i := 1; i < nCols; i++ {
			c, err := in.tok.Next(false)
			if err == io.EOF || (err == nil && !isValueClass(c)) {
				return types.FormatError("short loop row", in.tok.LineNo())
			}
			if err != nil {
				return err
			}
			cells[i] = c
		}
		if cat != nil {
			for i, idx := range slots {
				if idx >= 0 {
					applyValue(cat, idx, cells[i])
				}
			}
			if err := cat.FireRow(in.tok.LineNo()); err != nil {
				return err
			}
		}
	}
}

func isValueClass(tok Token) bool {
	return tok.Kind == KindValue || tok.Kind == KindOmitted || tok.Kind == KindUnknown
}

// splitVariable splits "_category.keyword" at the first '.'.
func splitVariable(s string) (category, keyword string, ok bool) {
	i := strings.IndexByte(s, '.')
	if i < 0 {
		return "", "", false
	}
	return s[:i], s[i+1:], true
}
