// Package text implements the textual mmCIF front end: a line-oriented
// tokenizer and the data_/loop_/variable/save-frame block interpreter
// that drives it.
package text

// Kind discriminates a Token's grammatical role.
type Kind int

const (
	// KindValue is a bareword, quoted string, or materialized multiline
	// block; Text holds the decoded content.
	KindValue Kind = iota
	// KindOmitted is the literal '.'.
	KindOmitted
	// KindUnknown is the literal '?'.
	KindUnknown
	// KindLoop is the reserved word loop_.
	KindLoop
	// KindDataBlock is a data_<name> token; Text holds <name>.
	KindDataBlock
	// KindSaveFrame is a save_<name> token; Text holds <name> (empty for
	// the closing save_).
	KindSaveFrame
	// KindVariable is a _category.keyword token; Text holds the full
	// "_category.keyword" span, split by the caller at the first '.'.
	KindVariable
)

// Token is one lexical unit produced by Tokenizer.Next.
type Token struct {
	Kind Kind
	Text string
}
