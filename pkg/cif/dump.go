package cif

import (
	"bytes"
	"sort"
)

// Inspect reads the whole input and returns every category name it
// references together with that category's keyword names, without
// materializing any rows. It works by running two discovery passes over
// the in-memory input: the first collects unknown-category
// notifications, the second registers those categories empty and
// collects unknown-keyword notifications.
func Inspect(data []byte, mode Mode, opts ReaderOptions) (map[string][]string, error) {
	cats, err := discoverCategories(data, mode, opts)
	if err != nil {
		return nil, err
	}
	return discoverKeywords(data, mode, opts, cats)
}

// Dump reads the whole input and materializes every row of every
// category into plain maps, category name -> rows. Present cells carry
// their string value; omitted and unknown cells carry the literals "."
// and "?". Dump is the glue every ad-hoc consumer (including the
// cifdump CLI) would otherwise write itself.
func Dump(data []byte, mode Mode, opts ReaderOptions) (map[string][]map[string]any, error) {
	keywords, err := Inspect(data, mode, opts)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(bytes.NewReader(data), mode, opts)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	out := make(map[string][]map[string]any, len(keywords))
	for cat, kws := range keywords {
		cat := cat
		h := r.RegisterCategory(cat, func(_ any, row RowView) error {
			m := make(map[string]any, len(row.Slots))
			for _, s := range row.Slots {
				switch {
				case s.Omitted:
					m[s.Name] = "."
				case s.Unknown:
					m[s.Name] = "?"
				case s.InFile:
					m[s.Name] = s.Str
				}
			}
			out[cat] = append(out[cat], m)
			return nil
		}, nil, nil, nil, nil)
		for _, kw := range kws {
			if err := r.RegisterKeyword(h, kw, CellString); err != nil {
				return nil, err
			}
		}
	}
	if err := readAll(r); err != nil {
		return nil, err
	}
	return out, nil
}

// discoverCategories runs a pass with nothing registered, collecting
// unknown-category notifications.
func discoverCategories(data []byte, mode Mode, opts ReaderOptions) ([]string, error) {
	r, err := NewReader(bytes.NewReader(data), mode, opts)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var cats []string
	r.SetUnknownCategoryCallback(func(category string, _ int) {
		cats = append(cats, category)
	})
	if err := readAll(r); err != nil {
		return nil, err
	}
	sort.Strings(cats)
	return cats, nil
}

// discoverKeywords runs a pass with every discovered category
// registered keyword-less, collecting unknown-keyword notifications.
func discoverKeywords(data []byte, mode Mode, opts ReaderOptions, cats []string) (map[string][]string, error) {
	r, err := NewReader(bytes.NewReader(data), mode, opts)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	out := make(map[string][]string, len(cats))
	for _, cat := range cats {
		out[cat] = nil
		r.RegisterCategory(cat, nil, nil, nil, nil, nil)
	}
	r.SetUnknownKeywordCallback(func(category, keyword string, _ int) {
		out[category] = append(out[category], keyword)
	})
	if err := readAll(r); err != nil {
		return nil, err
	}
	for _, kws := range out {
		sort.Strings(kws)
	}
	return out, nil
}

func readAll(r *Reader) error {
	for {
		more, err := r.ReadBlock()
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}
